// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package settings holds the sample settings file: channel assignments,
// gains, labels, ramp speeds and per-channel ranges for one cooldown.  The
// file on disk is the single source of truth; the in-memory view is a
// read-through/write-through cache with no durability of its own.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	ini "gopkg.in/ini.v1"
)

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrUnknownKey     = errors.New("unknown key")
)

// Store is a section/field string store backed by a single INI file.
//
// Every Set rewrites the whole backing file before returning, so edits made
// to the file by another process between load and Set are lost.  The store
// is built for a single owner; the internal mutex only serializes callers
// within this process.
type Store struct {
	mu   sync.Mutex
	path string
	file *ini.File
}

// Open loads the settings file at path.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file, replacing the in-memory state entirely.
func (s *Store) Reload() error {
	file, err := ini.Load(s.path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.file = file
	return nil
}

// Get returns the string value of section/field.  Field identifiers that are
// not strings (channel numbers, typically) are coerced to their string form
// before lookup.
func (s *Store) Get(section string, field any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.section(section)
	if err != nil {
		return "", err
	}

	name := coerce(field)
	if !sec.HasKey(name) {
		return "", fmt.Errorf("%w: [%s] %s", ErrUnknownKey, section, name)
	}
	return sec.Key(name).String(), nil
}

// Section returns the whole section as a field name to value map.
func (s *Store) Section(section string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.section(section)
	if err != nil {
		return nil, err
	}
	return sec.KeysHash(), nil
}

// Set stores the value (coerced to its string form) under section/field and
// synchronously rewrites the backing file.  There is no retry; a failed
// write surfaces the filesystem error to the caller.
func (s *Store) Set(section string, field, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.section(section)
	if err != nil {
		return err
	}

	sec.Key(coerce(field)).SetValue(coerce(value))

	if err := s.file.SaveTo(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Int is Get followed by an integer parse.
func (s *Store) Int(section string, field any) (int, error) {
	raw, err := s.Get(section, field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %w", section, coerce(field), err)
	}
	return n, nil
}

// Float is Get followed by a float parse.
func (s *Store) Float(section string, field any) (float64, error) {
	raw, err := s.Get(section, field)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %w", section, coerce(field), err)
	}
	return f, nil
}

func (s *Store) section(name string) (*ini.Section, error) {
	sec, err := s.file.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("%w: [%s]", ErrUnknownSection, name)
	}
	return sec, nil
}

func coerce(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
