// Package artifact provides the in-memory store for compiled binary
// artifacts, standing in for the compiler's output files.
package artifact

import (
	"fmt"
	"slices"
)

// Set maps artifact names to binary payloads and remembers insertion order.
// It is append-only while a backend compiler populates it and read-only
// afterwards. Payloads are copied on Put and on Get, so a payload can never
// be mutated through either side of the store.
//
// A Set is not safe for concurrent mutation; the pipeline populates it on a
// single goroutine during compilation and only reads it afterwards.
type Set struct {
	payloads map[string][]byte
	order    []string
}

// NewSet returns an empty artifact set.
func NewSet() *Set {
	return &Set{
		payloads: make(map[string][]byte),
	}
}

// Put stores a payload under name. Names are unique within a set; storing a
// duplicate name is a programming error in the backend and is rejected.
func (s *Set) Put(name string, payload []byte) error {
	if name == "" {
		return fmt.Errorf("artifact name is empty")
	}
	if _, exists := s.payloads[name]; exists {
		return fmt.Errorf("duplicate artifact name %q", name)
	}
	s.payloads[name] = slices.Clone(payload)
	s.order = append(s.order, name)
	return nil
}

// Get returns a copy of the payload stored under name.
func (s *Set) Get(name string) ([]byte, bool) {
	payload, ok := s.payloads[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(payload), true
}

// Names returns the artifact names in insertion order.
func (s *Set) Names() []string {
	return slices.Clone(s.order)
}

// Len returns the number of stored artifacts.
func (s *Set) Len() int {
	return len(s.order)
}

func (s *Set) String() string {
	return fmt.Sprintf("artifact.Set{Len: %d}", s.Len())
}
