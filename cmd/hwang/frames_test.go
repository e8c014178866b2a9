package main

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseFrames(t *testing.T) {
	tests := []struct {
		name  string
		specs []string
		want  []uint64
	}{
		{"single", []string{"7"}, []uint64{7}},
		{"list", []string{"3,1", "9"}, []uint64{3, 1, 9}},
		{"range", []string{"4-7"}, []uint64{4, 5, 6, 7}},
		{"step", []string{"0-10/5"}, []uint64{0, 5, 10}},
		{"step not reaching end", []string{"1-8/3"}, []uint64{1, 4, 7}},
		{"single frame range", []string{"5-5"}, []uint64{5}},
		{"empty items", []string{"1,,2, "}, []uint64{1, 2}},
		{"none", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFrames(tt.specs)
			if err != nil {
				t.Fatalf("parseFrames(%v) error = %v", tt.specs, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseFrames(%v) = %v, want %v", tt.specs, got, tt.want)
			}
		})
	}
}

func TestParseFramesMaxValue(t *testing.T) {
	got, err := parseFrames([]string{"18446744073709551614-18446744073709551615"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %v, want two frames", got)
	}
}

func TestParseFramesErrors(t *testing.T) {
	for _, spec := range []string{"x", "-3", "5-2", "1-4/0", "3/2", "1-", "1-4/x"} {
		if _, err := parseFrames([]string{spec}); !errors.Is(err, errFrameSpec) {
			t.Errorf("parseFrames(%q) error = %v, want errFrameSpec", spec, err)
		}
	}
}
