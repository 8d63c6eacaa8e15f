package wallet

import (
	stderrors "errors"

	"github.com/wippyai/xmr-keys/errors"
)

// Sentinels re-exported for callers that only import wallet.
var (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrClosed        = errors.ErrClosed
	ErrUnsupported   = errors.ErrUnsupported
	ErrNotFound      = errors.ErrNotFound
	ErrEngine        = errors.ErrEngine
)

func asError(err error, target **errors.Error) bool {
	return stderrors.As(err, target)
}
