package xmrkeys

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// NetworkType selects the Monero network a wallet derives addresses for.
type NetworkType uint8

const (
	// NetworkUnset is the zero value; creation configs must pick a network.
	NetworkUnset NetworkType = iota
	Mainnet
	Testnet
	Stagenet
)

// String returns the lower-case network name.
func (n NetworkType) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Stagenet:
		return "stagenet"
	default:
		return "unset"
	}
}

// Valid reports whether n is one of the three recognized networks.
func (n NetworkType) Valid() bool {
	return n == Mainnet || n == Testnet || n == Stagenet
}

// EngineCode returns the numeric network id the key engine expects
// (0 mainnet, 1 testnet, 2 stagenet).
func (n NetworkType) EngineCode() int {
	return int(n) - 1
}

// ParseNetworkType accepts a network name (case-insensitive) or the
// engine's numeric code.
func ParseNetworkType(s string) (NetworkType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	case "stagenet":
		return Stagenet, nil
	}
	if code, err := strconv.Atoi(s); err == nil && code >= 0 && code <= 2 {
		return NetworkType(code + 1), nil
	}
	return NetworkUnset, fmt.Errorf("unknown network type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (n NetworkType) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("invalid network type %d", n)
	}
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NetworkType) UnmarshalText(text []byte) error {
	v, err := ParseNetworkType(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// DefaultLanguage is used for new mnemonics when none is requested.
const DefaultLanguage = "English"

// HandleID is the engine's numeric reference to one wallet it holds.
type HandleID uint32

// Handle owns one engine wallet reference. A Handle belongs to exactly
// one wallet and becomes unusable once invalidated.
type Handle struct {
	id      HandleID
	invalid atomic.Bool
}

// NewHandle wraps an id returned by an engine creation entry point.
func NewHandle(id HandleID) *Handle {
	return &Handle{id: id}
}

// ID returns the engine id, or false once the handle has been invalidated.
func (h *Handle) ID() (HandleID, bool) {
	if h == nil || h.invalid.Load() {
		return 0, false
	}
	return h.id, true
}

// Invalidate marks the handle unusable. It returns true only for the
// call that performed the transition.
func (h *Handle) Invalidate() bool {
	if h == nil {
		return false
	}
	return h.invalid.CompareAndSwap(false, true)
}

// SubaddressIndex locates an address inside a wallet.
type SubaddressIndex struct {
	Account uint32 `json:"account" yaml:"account"`
	Index   uint32 `json:"index" yaml:"index"`
}

// Version is the engine build a wallet was created with.
type Version struct {
	Number  uint32 `json:"number"`
	Release bool   `json:"release"`
}

// RandomRequest asks the engine for a fresh random wallet.
type RandomRequest struct {
	Network  NetworkType
	Language string
}

// MnemonicRequest restores a wallet from a mnemonic phrase.
type MnemonicRequest struct {
	Network    NetworkType
	Mnemonic   string
	SeedOffset string
}

// KeysRequest restores a wallet from key material. Any field may be
// empty; the engine derives what it can from the rest.
type KeysRequest struct {
	Network         NetworkType
	Address         string
	PrivateViewKey  string
	PrivateSpendKey string
	Language        string
}

// CreateDone receives the outcome of a creation entry point.
type CreateDone func(id HandleID, err error)

// CloseDone receives the outcome of a close entry point.
type CloseDone func(err error)

// Engine is one loaded instance of the key computation engine.
//
// Engine implementations are NOT safe for concurrent use: callers must
// serialize every call, which the wallet package does through its task
// queue. Creation and close entry points signal completion through their
// callback rather than a return value.
type Engine interface {
	CreateRandom(ctx context.Context, req RandomRequest, done CreateDone)
	CreateFromMnemonic(ctx context.Context, req MnemonicRequest, done CreateDone)
	CreateFromKeys(ctx context.Context, req KeysRequest, done CreateDone)
	MnemonicLanguages(ctx context.Context) ([]string, error)

	Mnemonic(ctx context.Context, id HandleID) (string, error)
	MnemonicLanguage(ctx context.Context, id HandleID) (string, error)
	PrivateSpendKey(ctx context.Context, id HandleID) (string, error)
	PrivateViewKey(ctx context.Context, id HandleID) (string, error)
	PublicViewKey(ctx context.Context, id HandleID) (string, error)
	PublicSpendKey(ctx context.Context, id HandleID) (string, error)
	Address(ctx context.Context, id HandleID, account, index uint32) (string, error)
	AddressIndex(ctx context.Context, id HandleID, address string) (SubaddressIndex, error)
	Version(ctx context.Context, id HandleID) (Version, error)
	IsWatchOnly(ctx context.Context, id HandleID) (bool, error)
	Close(ctx context.Context, id HandleID, done CloseDone)

	// Shutdown releases the engine itself; no calls may follow.
	Shutdown(ctx context.Context) error
}
