// Package indexstore persists video indexes as sidecar files next to the
// videos they describe.
package indexstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/hwang/pkg/adapters/logger"
	"github.com/user/hwang/pkg/ports"
	"github.com/user/hwang/pkg/videoindex"
)

// DefaultExtension is appended to a video path to name its sidecar.
const DefaultExtension = ".hwix"

// BuildFunc builds the index of the video at path.
type BuildFunc func(videoPath string) (*videoindex.Index, error)

// Store reads and writes sidecar indexes through a ports.FileSystem.
type Store struct {
	fs     ports.FileSystem
	ext    string
	logger ports.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithExtension overrides DefaultExtension. A missing leading dot is added.
func WithExtension(ext string) Option {
	return func(s *Store) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store on fs.
func New(fs ports.FileSystem, opts ...Option) *Store {
	s := &Store{
		fs:     fs,
		ext:    DefaultExtension,
		logger: logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("indexstore")
	return s
}

// Path returns the sidecar path of videoPath.
func (s *Store) Path(videoPath string) string {
	return videoPath + s.ext
}

// Save serializes index into the sidecar of videoPath.
func (s *Store) Save(videoPath string, index *videoindex.Index) error {
	path := s.Path(videoPath)
	if err := s.fs.WriteFile(path, index.Serialize()); err != nil {
		return fmt.Errorf("write index %s: %w", path, err)
	}
	s.logger.Debug("Saved index to %s", path)
	return nil
}

// Load reads the sidecar of videoPath. A corrupt sidecar returns an error
// wrapping videoindex.ErrCorruptIndex.
func (s *Store) Load(videoPath string) (*videoindex.Index, error) {
	path := s.Path(videoPath)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	index, err := videoindex.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	return index, nil
}

// LoadOrBuild loads the sidecar of videoPath, building and saving it when
// it is missing or corrupt. The bool result reports whether build ran.
func (s *Store) LoadOrBuild(videoPath string, build BuildFunc) (*videoindex.Index, bool, error) {
	exists, err := s.fs.Exists(s.Path(videoPath))
	if err != nil {
		return nil, false, fmt.Errorf("stat index: %w", err)
	}
	if exists {
		index, err := s.Load(videoPath)
		if err == nil {
			return index, false, nil
		}
		if !errors.Is(err, videoindex.ErrCorruptIndex) {
			return nil, false, err
		}
		s.logger.Warn("Index %s is corrupt, rebuilding: %v", s.Path(videoPath), err)
	}

	index, err := build(videoPath)
	if err != nil {
		return nil, true, fmt.Errorf("build index: %w", err)
	}
	if err := s.Save(videoPath, index); err != nil {
		return nil, true, err
	}
	return index, true, nil
}

// Remove deletes the sidecar of videoPath if it exists.
func (s *Store) Remove(videoPath string) error {
	path := s.Path(videoPath)
	exists, err := s.fs.Exists(path)
	if err != nil || !exists {
		return err
	}
	return s.fs.Remove(path)
}
