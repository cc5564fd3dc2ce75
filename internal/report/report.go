// Package report summarises an export run.
package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
)

// Summary describes one export run.
type Summary struct {
	Input     string `yaml:"input"`
	Timestamp string `yaml:"timestamp"`

	MasterImages     int `yaml:"master_images"`
	MasterImagesKept int `yaml:"master_images_kept"`
	Albums           int `yaml:"albums"`
	AlbumsKept       int `yaml:"albums_kept"`
	References       int `yaml:"references"`
	Unresolved       int `yaml:"unresolved"`

	Outputs []string    `yaml:"outputs"`
	Gaps    []AlbumGaps `yaml:"gaps,omitempty"`
}

// AlbumGaps lists the unresolved references of one album.
type AlbumGaps struct {
	Album      string `yaml:"album"`
	References []Gap  `yaml:"references"`
}

// Gap is one unresolved reference.
type Gap struct {
	Position int    `yaml:"position"`
	Key      string `yaml:"key"`
	Reason   string `yaml:"reason"`
}

// AddOutput records a written file.
func (s *Summary) AddOutput(path string) {
	s.Outputs = append(s.Outputs, path)
}

// AddCompositions counts the references of comps and records every gap.
func (s *Summary) AddCompositions(comps []iphoto.Composition) {
	for _, comp := range comps {
		s.References += comp.Len()
		unresolved := comp.Unresolved()
		if len(unresolved) == 0 {
			continue
		}
		gaps := AlbumGaps{Album: comp.Label, References: make([]Gap, 0, len(unresolved))}
		for _, u := range unresolved {
			gaps.References = append(gaps.References, Gap{Position: u.Position, Key: u.Key, Reason: u.Reason})
		}
		s.Unresolved += len(unresolved)
		s.Gaps = append(s.Gaps, gaps)
	}
}

// SaveYAML writes s to path.
func SaveYAML(path string, s *Summary, overwrite bool) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("refusing to overwrite existing file %s: %w", path, err)
		}
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	slog.Info("Run report saved", "path", path)
	return nil
}

// Load reads a report written by SaveYAML.
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &s, nil
}

// Print writes a human readable summary to w.
func Print(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Export Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Input:              %s\n", s.Input)
	fmt.Fprintf(w, "Master Images:      %d (%d kept)\n", s.MasterImages, s.MasterImagesKept)
	fmt.Fprintf(w, "Albums:             %d (%d kept)\n", s.Albums, s.AlbumsKept)
	fmt.Fprintf(w, "References:         %d\n", s.References)
	fmt.Fprintf(w, "Unresolved:         %d\n", s.Unresolved)
	if len(s.Outputs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Outputs:")
		for _, path := range s.Outputs {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}
	fmt.Fprintln(w, "========================================")
}
