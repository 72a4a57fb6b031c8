// Package mocks provides testify mock implementations of the platform
// contracts, for tests that exercise the engine without a real backend.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
)

var (
	_ platform.Backend   = (*Backend)(nil)
	_ platform.Unit      = (*Unit)(nil)
	_ platform.Namespace = (*Namespace)(nil)
)

// Backend is a mock implementation of platform.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Backend) FileExtension() string {
	args := m.Called()
	return args.String(0)
}

func (m *Backend) Compile(
	ctx context.Context,
	req platform.CompileRequest,
) (*artifact.Set, error) {
	args := m.Called(ctx, req)
	var set *artifact.Set
	if v := args.Get(0); v != nil {
		set = v.(*artifact.Set)
	}
	return set, args.Error(1)
}

func (m *Backend) Link(
	ctx context.Context,
	name string,
	payload []byte,
	ns platform.Namespace,
) (platform.Unit, error) {
	args := m.Called(ctx, name, payload, ns)
	var unit platform.Unit
	if v := args.Get(0); v != nil {
		unit = v.(platform.Unit)
	}
	return unit, args.Error(1)
}

// Unit is a mock implementation of platform.Unit. The entry and setter
// capabilities are configured directly instead of through expectations, so
// tests can hand out plain closures.
type Unit struct {
	mock.Mock

	UnitName   string
	UnitPublic bool
	EntryFn    platform.EntryFunc
	SetterFn   platform.ContextSetterFunc
}

func (m *Unit) Name() string {
	return m.UnitName
}

func (m *Unit) Public() bool {
	return m.UnitPublic
}

func (m *Unit) Entry() (platform.EntryFunc, bool) {
	return m.EntryFn, m.EntryFn != nil
}

func (m *Unit) ContextSetter() (platform.ContextSetterFunc, bool) {
	return m.SetterFn, m.SetterFn != nil
}

// Namespace is a mock implementation of platform.Namespace.
type Namespace struct {
	mock.Mock
}

func (m *Namespace) Lookup(ctx context.Context, name string) (platform.Unit, error) {
	args := m.Called(ctx, name)
	var unit platform.Unit
	if v := args.Get(0); v != nil {
		unit = v.(platform.Unit)
	}
	return unit, args.Error(1)
}
