// Package errors provides structured error types for the xmr-keys module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the operation name, an optional field path, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEngine, errors.KindEngine).
//		Op("get_address").
//		Detail("invalid account index %d", idx).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Closed("get_private_view_key")
//	err := errors.InvalidConfig("seed_offset", rule, "seed offset requires a mnemonic")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels (ErrClosed, ErrInvalidConfig, ...) match any
// error of their kind regardless of phase:
//
//	if errors.Is(err, xerrors.ErrClosed) { ... }
package errors
