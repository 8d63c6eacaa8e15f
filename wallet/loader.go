package wallet

import (
	"context"
	"sync"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

// Factory produces a loaded engine. engine.FileSource and
// engine.BytesSource return one.
type Factory func(ctx context.Context) (xmrkeys.Engine, error)

// Loader loads the engine module at most once and hands the same Module
// to every caller. A failed load is cached too.
type Loader struct {
	factory Factory
	mod     *Module
	err     error
	opts    []Option
	once    sync.Once
}

// NewLoader creates a loader. Nothing is loaded until Module is called.
func NewLoader(factory Factory, opts ...Option) *Loader {
	return &Loader{factory: factory, opts: opts}
}

// Module returns the shared module, loading it on first use.
func (l *Loader) Module(ctx context.Context) (*Module, error) {
	l.once.Do(func() {
		if l.factory == nil {
			l.err = errors.NotInitialized(errors.PhaseLoad, "engine factory")
			return
		}
		eng, err := l.factory(ctx)
		if err != nil {
			l.err = err
			return
		}
		l.mod = NewModule(eng, l.opts...)
	})
	return l.mod, l.err
}

// Close closes the module if it was loaded. A loader that never loaded is
// marked closed so later Module calls fail instead of loading.
func (l *Loader) Close(ctx context.Context) error {
	l.once.Do(func() {
		l.err = errors.Closed("load_module")
	})
	if l.mod == nil {
		return nil
	}
	return l.mod.Close(ctx)
}
