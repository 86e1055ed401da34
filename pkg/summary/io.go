package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ChicagoDave/daylight/pkg/errs"
)

// Marshal renders s in its artifact form: two-space indented JSON with a
// trailing newline.
func Marshal(s *Summary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling summary: %w", err)
	}
	return append(data, '\n'), nil
}

// Write replaces the artifact at path. The document is rendered in memory
// and moved into place atomically, so readers see either the previous
// artifact or the complete new one.
func Write(path string, s *Summary) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Read parses the artifact at path.
func Read(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Input(path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errs.Input(path, err)
	}
	return s, nil
}

// Parse decodes an artifact document.
func Parse(data []byte) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	if s.Rooms == nil {
		s.Rooms = []Room{}
	}
	if s.InsufficientDataRooms == nil {
		s.InsufficientDataRooms = []string{}
	}
	return &s, nil
}
