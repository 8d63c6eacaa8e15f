// Package xmrkeys provides a key-only Monero wallet driven by a WebAssembly
// key engine.
//
// All cryptography (seed generation, key derivation, address encoding) lives
// inside the engine module. This module loads that engine, serializes every
// call into it, and enforces the wallet creation and lifecycle rules around
// those calls.
//
// # Architecture Overview
//
//	xmrkeys/         Root package with the Engine interface, Handle and shared types
//	├── engine/      wazero host for the WASM key engine
//	├── queue/       Single-flight FIFO task queue in front of the engine
//	├── wallet/      Creation config validation, loader and KeysWallet lifecycle
//	├── walletrpc/   Cross-check derived addresses against monero-wallet-rpc
//	├── errors/      Structured error types
//	└── cmd/xmrkeys/ Command-line front end
//
// # Quick Start
//
//	loader := wallet.NewLoader(engine.FileSource("monero_keys.wasm", nil))
//	mod, err := loader.Module(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := wallet.CreateRandom(ctx, mod, xmrkeys.Stagenet, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close(ctx, false)
//
//	addr, err := w.PrimaryAddress(ctx)
//
// # Thread Safety
//
// The engine instance is NOT reentrant. Every wallet created from one
// loaded engine shares that engine's queue, which runs one call at a time in
// submission order. Wallets and modules are safe for concurrent use.
package xmrkeys
