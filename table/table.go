// Package table manages the example parameter table of a TEC node.
//
// Loads are double buffered: Stage validates a new image into a pending
// slot and Manage, called at the housekeeping rate, makes it active.
// Readers therefore never observe a half-loaded or invalid table.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
)

// Int1Max bounds Example.Int1.
const Int1Max = 10

var ErrNotLoaded = errors.New("table not loaded")

// Example is the content of the example table.
type Example struct {
	Int1 int32 `json:"int1"`
	Int2 int32 `json:"int2"`
}

// Validate checks the table against its limits.
func (e Example) Validate() error {
	if e.Int1 < 0 || e.Int1 > Int1Max {
		return fmt.Errorf("int1 %d out of range [0, %d]", e.Int1, Int1Max)
	}
	return nil
}

// Store holds the active and pending images of a table.
type Store struct {
	name    string
	active  *Example
	image   []byte
	pending *Example
	pimage  []byte
}

// NewStore returns an empty store for the table called name.
func NewStore(name string) *Store {
	return &Store{name: name}
}

// Name returns the table name.
func (s *Store) Name() string {
	return s.name
}

// Stage reads the table file at path, validates it and keeps it pending
// until the next Manage.
func (s *Store) Stage(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load table %s: %w", s.name, err)
	}
	return s.StageBytes(b)
}

// StageBytes is Stage for an in-memory image.
func (s *Store) StageBytes(b []byte) error {
	var e Example
	if err := json.Unmarshal(b, &e); err != nil {
		return fmt.Errorf("decode table %s: %w", s.name, err)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate table %s: %w", s.name, err)
	}
	s.pending = &e
	s.pimage = append([]byte(nil), b...)
	return nil
}

// Manage activates the pending image, if any. It reports whether the
// active table changed.
func (s *Store) Manage() bool {
	if s.pending == nil {
		return false
	}
	s.active, s.image = s.pending, s.pimage
	s.pending, s.pimage = nil, nil
	return true
}

// Active returns the active table.
func (s *Store) Active() (Example, error) {
	if s.active == nil {
		return Example{}, ErrNotLoaded
	}
	return *s.active, nil
}

// CRC returns the CRC-32 (IEEE) of the active image.
func (s *Store) CRC() (uint32, error) {
	if s.active == nil {
		return 0, ErrNotLoaded
	}
	return crc32.ChecksumIEEE(s.image), nil
}
