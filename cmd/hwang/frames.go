package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errFrameSpec = errors.New("invalid frame spec")

// parseFrames expands frame specs into frame numbers. Each argument is a
// comma-separated list of N, A-B (inclusive) or A-B/S (every S-th frame).
func parseFrames(specs []string) ([]uint64, error) {
	var rows []uint64
	for _, arg := range specs {
		for _, spec := range strings.Split(arg, ",") {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			r, err := parseFrameSpec(spec)
			if err != nil {
				return nil, err
			}
			rows = append(rows, r...)
		}
	}
	return rows, nil
}

func parseFrameSpec(spec string) ([]uint64, error) {
	rangePart, stepPart, hasStep := strings.Cut(spec, "/")
	step := uint64(1)
	if hasStep {
		s, err := strconv.ParseUint(stepPart, 10, 64)
		if err != nil || s == 0 {
			return nil, fmt.Errorf("%w %q: step must be a positive integer", errFrameSpec, spec)
		}
		step = s
	}

	startPart, endPart, isRange := strings.Cut(rangePart, "-")
	start, err := strconv.ParseUint(startPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w %q", errFrameSpec, spec)
	}
	if !isRange {
		if hasStep {
			return nil, fmt.Errorf("%w %q: step needs a range", errFrameSpec, spec)
		}
		return []uint64{start}, nil
	}

	end, err := strconv.ParseUint(endPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w %q", errFrameSpec, spec)
	}
	if end < start {
		return nil, fmt.Errorf("%w %q: end before start", errFrameSpec, spec)
	}

	rows := make([]uint64, 0, (end-start)/step+1)
	for f := start; f <= end; f += step {
		rows = append(rows, f)
		if f > end-step {
			break
		}
	}
	return rows, nil
}
