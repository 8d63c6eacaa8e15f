// Package engine hosts the Monero key engine as a WebAssembly module on wazero.
//
// The engine is a plain core module (no component model) that does all key
// derivation. WazeroEngine implements xmrkeys.Engine on top of it.
//
// # Guest ABI
//
// The guest exports its linear memory, an allocator (cabi_realloc, malloc or
// alloc) and a deallocator (free or cabi_free). Requests are JSON written
// into guest memory; every result is a JSON envelope:
//
//	{"result": ...}
//	{"error": "message"}
//
// Accessors return the envelope as a packed i64, pointer in the high 32 bits
// and length in the low 32. The host copies and frees it.
//
// Wallet creation and close are completion-signaled. The host passes a
// callback id and the guest reports through the import
//
//	(import "xmrkeys" "on_done" (func (param i32 i32 i32)))  ;; cb, ptr, len
//
// before returning. An export that returns without signaling is an error.
//
// # Thread Safety
//
// WazeroEngine is NOT thread-safe. Callers serialize access through the
// wallet package's task queue.
//
// # Randomness
//
// WASI random_get is backed by crypto/rand unless Config.Rand says
// otherwise. The guest draws new wallet seeds from it.
package engine
