package synthesis

import (
	"context"
	"sync"
)

// FakeGenerator is a deterministic Generator for tests and local runs.
type FakeGenerator struct {
	Raw Raw
	Err error

	mu    sync.Mutex
	Calls []Request
}

func (f *FakeGenerator) Generate(ctx context.Context, req Request) (Raw, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Raw{}, err
	}
	if f.Err != nil {
		return Raw{}, f.Err
	}
	return f.Raw, nil
}

func (f *FakeGenerator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// LastCall returns the most recent request, or a zero Request.
func (f *FakeGenerator) LastCall() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Calls) == 0 {
		return Request{}
	}
	return f.Calls[len(f.Calls)-1]
}
