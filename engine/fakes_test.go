package engine

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dynrun/dynrun/engines/mocks"
	"github.com/dynrun/dynrun/platform"
	"github.com/dynrun/dynrun/platform/artifact"
)

// fakeBackend is a minimal in-process toolchain for engine tests. Compile
// produces one artifact per source whose payload is the source text; Link
// wraps the payload in a mock unit. Both steps can be overridden per test,
// and Link calls are counted so materialization tests can observe how often
// linking really happens.
type fakeBackend struct {
	compileFn func(ctx context.Context, req platform.CompileRequest) (*artifact.Set, error)
	linkFn    func(ctx context.Context, name string, payload []byte, ns platform.Namespace) (platform.Unit, error)

	mu        sync.Mutex
	linkCalls int
}

func (b *fakeBackend) Name() string {
	return "fake"
}

func (b *fakeBackend) FileExtension() string {
	return ".fake"
}

func (b *fakeBackend) Compile(
	ctx context.Context,
	req platform.CompileRequest,
) (*artifact.Set, error) {
	if b.compileFn != nil {
		return b.compileFn(ctx, req)
	}
	set := artifact.NewSet()
	for _, src := range req.Sources {
		name := strings.TrimSuffix(filepath.Base(src.Name), b.FileExtension())
		if err := set.Put(name, src.Text); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (b *fakeBackend) Link(
	ctx context.Context,
	name string,
	payload []byte,
	ns platform.Namespace,
) (platform.Unit, error) {
	b.mu.Lock()
	b.linkCalls++
	b.mu.Unlock()

	if b.linkFn != nil {
		return b.linkFn(ctx, name, payload, ns)
	}
	return &mocks.Unit{
		UnitName:   name,
		UnitPublic: platform.PublicName(name),
		EntryFn:    func(context.Context, []string) error { return nil },
	}, nil
}

func (b *fakeBackend) LinkCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linkCalls
}

// mustSet builds an artifact set from name/payload pairs.
func mustSet(pairs ...string) *artifact.Set {
	set := artifact.NewSet()
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := set.Put(pairs[i], []byte(pairs[i+1])); err != nil {
			panic(err)
		}
	}
	return set
}
