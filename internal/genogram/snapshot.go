package genogram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxSnapshotSize = 8 * 1024 * 1024 // 8MB

var (
	// ErrInvalidSnapshot wraps every validation failure.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrUnsupportedFormat is returned for file extensions other than json/yaml/yml.
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")
)

// Format identifies a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Snapshot is a read-only view of the genogram handed to the engine.
type Snapshot struct {
	RootMemberID  string         `json:"root_member_id" yaml:"root_member_id"`
	Members       []Member       `json:"members" yaml:"members"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
	Events        []Event        `json:"events" yaml:"events"`
}

// FormatFromPath infers the snapshot format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadSnapshot reads a snapshot file. The format is chosen from the extension.
func LoadSnapshot(path string) (*Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	if info.Size() > maxSnapshotSize {
		return nil, fmt.Errorf("snapshot file too large: %d bytes (max %d)", info.Size(), maxSnapshotSize)
	}

	snap, err := DecodeSnapshot(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return snap, nil
}

// DecodeSnapshot decodes a snapshot from r.
func DecodeSnapshot(r io.Reader, format Format) (*Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSnapshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) > maxSnapshotSize {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", maxSnapshotSize)
	}

	var snap Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &snap, nil
}

// Validate checks the snapshot for data-entry errors. The engine tolerates
// everything reported here; validation exists for hosts that want to reject
// bad input before analysis.
func (s *Snapshot) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(s.Members))
	for i, m := range s.Members {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("members[%d]: id is required", i))
			continue
		}
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("members[%d]: duplicate id %q", i, m.ID))
		}
		seen[m.ID] = true
		if !m.Sex.Valid() {
			errs = append(errs, fmt.Errorf("members[%d]: unknown sex %q", i, m.Sex))
		}
		if m.BirthDate != nil && m.DeathDate != nil && m.DeathDate.Before(*m.BirthDate) {
			errs = append(errs, fmt.Errorf("members[%d]: death date precedes birth date", i))
		}
	}

	if s.RootMemberID != "" && !seen[s.RootMemberID] {
		errs = append(errs, fmt.Errorf("root member %q not found", s.RootMemberID))
	}

	for i, r := range s.Relationships {
		if r.From == "" || r.To == "" {
			errs = append(errs, fmt.Errorf("relationships[%d]: from and to are required", i))
		}
		if r.From != "" && r.From == r.To {
			errs = append(errs, fmt.Errorf("relationships[%d]: self edge on %q", i, r.From))
		}
		if !r.Type.Valid() {
			errs = append(errs, fmt.Errorf("relationships[%d]: unknown type %q", i, r.Type))
		}
	}

	for i, e := range s.Events {
		if !e.Kind.Valid() {
			errs = append(errs, fmt.Errorf("events[%d]: unknown kind %q", i, e.Kind))
		}
		if !e.Lineage.Valid() {
			errs = append(errs, fmt.Errorf("events[%d]: unknown lineage %q", i, e.Lineage))
		}
		if e.Severity < MinSeverity || e.Severity > MaxSeverity {
			errs = append(errs, fmt.Errorf("events[%d]: severity %d outside %d-%d", i, e.Severity, MinSeverity, MaxSeverity))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSnapshot, errors.Join(errs...))
}
