package wallet

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
	"github.com/wippyai/xmr-keys/queue"
)

// Saver persists a wallet when it is closed with save requested. Save runs
// while the wallet's close is in progress, so it may read the wallet but
// must not close it.
type Saver interface {
	Save(ctx context.Context, w *KeysWallet) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, w *KeysWallet) error

func (f SaverFunc) Save(ctx context.Context, w *KeysWallet) error {
	return f(ctx, w)
}

// DefaultFaultTimeout is how long the queue stays held after an engine
// call panics before its completion was signaled.
const DefaultFaultTimeout = 30 * time.Second

type options struct {
	logger       *zap.Logger
	saver        Saver
	queueName    string
	faultTimeout time.Duration
}

// Option configures a Module.
type Option func(*options)

// WithLogger sets the logger for the module and its queue.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSaver sets the collaborator used by Close(ctx, true).
func WithSaver(s Saver) Option {
	return func(o *options) { o.saver = s }
}

// WithQueueName names the module's task queue in log output.
func WithQueueName(name string) Option {
	return func(o *options) { o.queueName = name }
}

// WithFaultTimeout bounds how long a panicked engine call keeps the queue
// waiting for its completion. Zero waits indefinitely.
func WithFaultTimeout(d time.Duration) Option {
	return func(o *options) { o.faultTimeout = d }
}

// Module is one loaded engine and the queue that serializes every call
// into it. All wallets created from a Module share both.
type Module struct {
	engine xmrkeys.Engine
	queue  *queue.Queue
	log    *zap.Logger
	saver  Saver
	closed atomic.Bool
}

// NewModule takes ownership of eng.
func NewModule(eng xmrkeys.Engine, opts ...Option) *Module {
	o := options{queueName: "xmrkeys", faultTimeout: DefaultFaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	return &Module{
		engine: eng,
		queue:  queue.New(&queue.Config{
			Name:         o.queueName,
			Logger:       o.logger,
			FaultTimeout: o.faultTimeout,
		}),
		log:    o.logger,
		saver:  o.saver,
	}
}

// Queue returns the module's task queue.
func (m *Module) Queue() *queue.Queue {
	return m.queue
}

// MnemonicLanguages lists the languages the engine can produce mnemonics in.
func (m *Module) MnemonicLanguages(ctx context.Context) ([]string, error) {
	return queue.Do(ctx, m.queue, "get_mnemonic_languages", func(ctx context.Context) ([]string, error) {
		return m.engine.MnemonicLanguages(ctx)
	})
}

// Close stops accepting work, runs what is already queued and shuts the
// engine down. Wallets from this module fail afterwards.
func (m *Module) Close(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := m.queue.Close(ctx); err != nil {
		return err
	}
	if err := m.engine.Shutdown(ctx); err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindEngine, err, "shutdown engine")
	}
	m.log.Debug("module closed")
	return nil
}
