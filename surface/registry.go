// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Factory creates a surface from options. Factories return an error
// wrapping ErrInvalidOptions when a required option is missing.
type Factory func(opts Options) (Surface, error)

// Built-in priorities.
const (
	PriorityNull  = 0
	PriorityImage = 10
	PriorityWebP  = 20
	PriorityWS    = 50
)

// Entry is a registered surface.
type Entry struct {
	Name string

	// Priority orders automatic selection, higher first.
	Priority int

	Factory Factory

	// Available reports whether the surface can be created on this system.
	// Nil means always.
	Available func() bool
}

func (e Entry) available() bool {
	return e.Available == nil || e.Available()
}

// Registry holds surface factories ordered by priority, then name.
// The zero value is an empty registry ready to use.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// Default is the registry the package-level functions use. Built-in
// surfaces and surface/wsview register here.
var Default = new(Registry)

// Register adds a surface to the Default registry.
func Register(name string, priority int, factory Factory) {
	Default.Register(Entry{Name: name, Priority: priority, Factory: factory})
}

// NewSurface creates the best surface of the Default registry whose factory
// accepts opts.
func NewSurface(opts Options) (Surface, error) {
	return Default.Open(opts)
}

// NewSurfaceByName creates a named surface from the Default registry.
func NewSurfaceByName(name string, opts Options) (Surface, error) {
	return Default.OpenNamed(name, opts)
}

// Register adds e, replacing any entry with the same name.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = slices.DeleteFunc(r.entries, func(old Entry) bool { return old.Name == e.Name })
	i, _ := slices.BinarySearchFunc(r.entries, e, compareEntries)
	r.entries = slices.Insert(r.entries, i, e)
}

// Unregister removes name and reports whether it was registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	r.entries = slices.DeleteFunc(r.entries, func(e Entry) bool { return e.Name == name })
	return len(r.entries) != n
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.index(name); i >= 0 {
		return r.entries[i], true
	}
	return Entry{}, false
}

// Names returns the registered names in selection order. With
// onlyAvailable set, surfaces that cannot be created here are left out.
func (r *Registry) Names(onlyAvailable bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, e := range r.entries {
		if !onlyAvailable || e.available() {
			names = append(names, e.Name)
		}
	}
	return names
}

// Open tries each available surface in selection order and returns the
// first one created. When none succeeds the factory errors are joined with
// ErrNoSurfaceAvailable.
func (r *Registry) Open(opts Options) (Surface, error) {
	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	errs := []error{ErrNoSurfaceAvailable}
	for _, e := range entries {
		if !e.available() {
			continue
		}
		s, err := e.Factory(opts)
		if err == nil {
			return s, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
	}
	if len(errs) == 1 {
		return nil, ErrNoSurfaceAvailable
	}
	return nil, errors.Join(errs...)
}

// OpenNamed creates the surface registered under name.
func (r *Registry) OpenNamed(name string, opts Options) (Surface, error) {
	e, ok := r.Lookup(name)
	switch {
	case !ok:
		return nil, &NotFoundError{Name: name}
	case !e.available():
		return nil, &UnavailableError{Name: name}
	}
	return e.Factory(opts)
}

// Caller must hold r.mu.
func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.entries, func(e Entry) bool { return e.Name == name })
}

func compareEntries(a, b Entry) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// ErrNoSurfaceAvailable is returned when no registered surface can be
// created.
var ErrNoSurfaceAvailable = errors.New("surface: no surface available")

// NotFoundError reports a name that is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "surface: not found: " + e.Name
}

// UnavailableError reports a registered surface that cannot be created on
// this system.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return "surface: unavailable: " + e.Name
}

func init() {
	Register("null", PriorityNull, func(Options) (Surface, error) {
		return Null{}, nil
	})
	Register("image", PriorityImage, func(opts Options) (Surface, error) {
		return NewCapture(opts.Width, opts.Height), nil
	})
	Register("webp", PriorityWebP, func(opts Options) (Surface, error) {
		return CreateWebPRecorder(opts)
	})
}
