// Package wallet implements keys-only Monero wallets on top of a shared key
// engine.
//
// A Module pairs one loaded engine with the queue that serializes every call
// into it. Loader produces the Module once per process:
//
//	loader := wallet.NewLoader(engine.FileSource("monero_keys.wasm", nil))
//	mod, err := loader.Module(ctx)
//
// Wallets are created in one of three modes, picked by Config and checked
// by Validate before any engine call:
//
//	random      neither mnemonic nor keys
//	mnemonic    Mnemonic set, optional SeedOffset, no Language
//	keys        any of PrimaryAddress, PrivateViewKey, PrivateSpendKey
//
// A KeysWallet is Open until Close succeeds and Closed forever after. Calls
// on a closed wallet fail with ErrClosed without touching the queue; calls
// already queued when the close runs fail the same way on the worker.
package wallet
