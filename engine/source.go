package engine

import (
	"context"
	"os"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

// FileSource returns a factory that loads the engine module from a .wasm
// file. wallet.NewLoader accepts it.
func FileSource(path string, cfg *Config) func(context.Context) (xmrkeys.Engine, error) {
	return func(ctx context.Context) (xmrkeys.Engine, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Load("read engine module "+path, err)
		}
		return load(ctx, data, cfg)
	}
}

// BytesSource loads the engine module from an in-memory binary.
func BytesSource(wasm []byte, cfg *Config) func(context.Context) (xmrkeys.Engine, error) {
	return func(ctx context.Context) (xmrkeys.Engine, error) {
		if len(wasm) == 0 {
			return nil, errors.Load("empty engine module", nil)
		}
		return load(ctx, wasm, cfg)
	}
}

func load(ctx context.Context, wasm []byte, cfg *Config) (xmrkeys.Engine, error) {
	e, err := New(ctx, wasm, cfg)
	if err != nil {
		return nil, err
	}
	return e, nil
}
