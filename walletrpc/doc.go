// Package walletrpc cross-checks key engine output against monero-wallet-rpc.
//
// The key engine derives addresses offline. Verifier opens the same wallet
// in a running monero-wallet-rpc and compares the addresses it reports, so a
// broken engine build is caught before its addresses are handed out.
//
//	v, err := walletrpc.New(&walletrpc.Config{Address: "http://127.0.0.1:18083/json_rpc"})
//	report, err := v.Verify(ctx, w, "restored", "", indices)
//	if !report.OK() { ... }
//
// Calls are paced with a token bucket limiter.
package walletrpc
