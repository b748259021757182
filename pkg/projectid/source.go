// Package projectid supplies the target project identifier from external
// locations. The identifier is opaque to the rest of the system and immutable
// once obtained.
package projectid

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyProjectID is returned when a source exists but holds no project id.
var ErrEmptyProjectID = errors.New("project id is empty")

// Source defines the contract for obtaining the target project identifier.
type Source interface {
	// ProjectID returns a non-empty project identifier or an error.
	ProjectID(ctx context.Context) (string, error)
}

// FileSource reads the project id from a single-line text file, typically
// written by an environment bootstrap script.
type FileSource struct {
	Path string
}

// NewFileSource creates a source backed by the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// ProjectID reads and trims the file's contents. A missing file, an
// unreadable file, and an empty file are distinct errors.
func (s *FileSource) ProjectID(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("project id file not found at %s: %w", s.Path, err)
		}
		return "", fmt.Errorf("failed to read project id file %s: %w", s.Path, err)
	}

	projectID := strings.TrimSpace(string(data))
	if projectID == "" {
		return "", fmt.Errorf("project id file %s: %w", s.Path, ErrEmptyProjectID)
	}
	return projectID, nil
}

// StaticSource returns a fixed project id, e.g. one supplied on the command
// line.
type StaticSource struct {
	ID string
}

// NewStaticSource creates a source that always returns id.
func NewStaticSource(id string) *StaticSource {
	return &StaticSource{ID: id}
}

func (s *StaticSource) ProjectID(_ context.Context) (string, error) {
	if strings.TrimSpace(s.ID) == "" {
		return "", ErrEmptyProjectID
	}
	return strings.TrimSpace(s.ID), nil
}
