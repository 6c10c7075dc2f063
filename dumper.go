// dumper.go - timestamped diagnostic dump writer
//
// Grounded on original_source/src/dumper.rs: writes a binary blob under
// ./dumps/ with a timestamp baked into the filename, for the
// DumpRegisters/DumpMemory diagnostic opcodes.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dumper writes diagnostic snapshots into a directory, one timestamped
// file per call.
type Dumper struct {
	dir string
	now func() time.Time
}

// NewDumper returns a dumper writing under dir (created on first use).
// An empty dir disables dumping (Dump becomes a no-op), which is handy
// in tests that never want files written to disk.
func NewDumper(dir string) *Dumper {
	return &Dumper{dir: dir, now: time.Now}
}

// Dump writes data to "<dir>/<nameRoot>_<timestamp>.bin".
func (d *Dumper) Dump(nameRoot string, data []byte) error {
	if d == nil || d.dir == "" {
		return nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("dumper: %w", err)
	}

	timestamp := d.now().Format("2006-01-02_15-04-05.000")
	path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.bin", nameRoot, timestamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dumper: %w", err)
	}
	return nil
}
