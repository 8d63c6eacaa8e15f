package wallet

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

type fakeWallet struct {
	network  xmrkeys.NetworkType
	mnemonic string
	language string
	spend    string
	view     string
	closed   bool
}

// fakeEngine counts calls and records whether two of them ever overlapped.
// Completion-signaled calls finish on another goroutine.
type fakeEngine struct {
	wallets  map[xmrkeys.HandleID]*fakeWallet
	closeErr error
	delay    time.Duration
	lastReq  any
	next     xmrkeys.HandleID
	mu       sync.Mutex
	calls    atomic.Int64
	inFlight atomic.Bool
	overlap  atomic.Bool
	shutdown atomic.Bool
}

var _ xmrkeys.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{wallets: make(map[xmrkeys.HandleID]*fakeWallet)}
}

func (f *fakeEngine) enter() {
	f.calls.Add(1)
	if !f.inFlight.CompareAndSwap(false, true) {
		f.overlap.Store(true)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeEngine) exit() {
	f.inFlight.Store(false)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func derive(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func isKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (f *fakeEngine) add(w *fakeWallet) xmrkeys.HandleID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.wallets[f.next] = w
	return f.next
}

func (f *fakeEngine) wallet(op string, id xmrkeys.HandleID) (*fakeWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok || w.closed {
		return nil, errors.Engine(op, fmt.Sprintf("no wallet with handle %d", id))
	}
	return w, nil
}

func (f *fakeEngine) finish(done func()) {
	go func() {
		f.exit()
		done()
	}()
}

func (f *fakeEngine) setLast(req any) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
}

func (f *fakeEngine) last() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func (f *fakeEngine) CreateRandom(_ context.Context, req xmrkeys.RandomRequest, done xmrkeys.CreateDone) {
	f.enter()
	f.setLast(req)
	spend := randomHex(32)
	id := f.add(&fakeWallet{
		network:  req.Network,
		mnemonic: "seed " + randomHex(16),
		language: req.Language,
		spend:    spend,
		view:     derive("view", spend),
	})
	f.finish(func() { done(id, nil) })
}

func (f *fakeEngine) CreateFromMnemonic(_ context.Context, req xmrkeys.MnemonicRequest, done xmrkeys.CreateDone) {
	f.enter()
	f.setLast(req)
	if req.Mnemonic == "bad" {
		f.finish(func() { done(0, errors.Engine("create_wallet_from_mnemonic", "invalid mnemonic")) })
		return
	}
	spend := derive(req.Mnemonic, req.SeedOffset)
	id := f.add(&fakeWallet{
		network:  req.Network,
		mnemonic: req.Mnemonic,
		language: xmrkeys.DefaultLanguage,
		spend:    spend,
		view:     derive("view", spend),
	})
	f.finish(func() { done(id, nil) })
}

func (f *fakeEngine) CreateFromKeys(_ context.Context, req xmrkeys.KeysRequest, done xmrkeys.CreateDone) {
	f.enter()
	f.setLast(req)
	if req.PrivateViewKey != "" && !isKey(req.PrivateViewKey) {
		f.finish(func() { done(0, errors.Engine("create_wallet_from_keys", "invalid private view key")) })
		return
	}
	w := &fakeWallet{network: req.Network, view: req.PrivateViewKey}
	if isKey(req.PrivateSpendKey) {
		w.spend = req.PrivateSpendKey
		if w.view == "" {
			w.view = derive("view", w.spend)
		}
	}
	if w.view == "" {
		w.view = derive("address", req.Address)
	}
	id := f.add(w)
	f.finish(func() { done(id, nil) })
}

func (f *fakeEngine) MnemonicLanguages(context.Context) ([]string, error) {
	f.enter()
	defer f.exit()
	return []string{"English", "Deutsch", "Español"}, nil
}

func (f *fakeEngine) field(op string, id xmrkeys.HandleID, get func(*fakeWallet) string) (string, error) {
	f.enter()
	defer f.exit()
	w, err := f.wallet(op, id)
	if err != nil {
		return "", err
	}
	return get(w), nil
}

func (f *fakeEngine) Mnemonic(_ context.Context, id xmrkeys.HandleID) (string, error) {
	return f.field("get_mnemonic", id, func(w *fakeWallet) string { return w.mnemonic })
}

func (f *fakeEngine) MnemonicLanguage(_ context.Context, id xmrkeys.HandleID) (string, error) {
	return f.field("get_mnemonic_language", id, func(w *fakeWallet) string { return w.language })
}

func (f *fakeEngine) PrivateSpendKey(_ context.Context, id xmrkeys.HandleID) (string, error) {
	return f.field("get_private_spend_key", id, func(w *fakeWallet) string { return w.spend })
}

func (f *fakeEngine) PrivateViewKey(_ context.Context, id xmrkeys.HandleID) (string, error) {
	return f.field("get_private_view_key", id, func(w *fakeWallet) string { return w.view })
}

func (f *fakeEngine) PublicViewKey(_ context.Context, id xmrkeys.HandleID) (string, error) {
	return f.field("get_public_view_key", id, func(w *fakeWallet) string { return derive("pub", w.view) })
}

func (f *fakeEngine) PublicSpendKey(_ context.Context, id xmrkeys.HandleID) (string, error) {
	return f.field("get_public_spend_key", id, func(w *fakeWallet) string {
		if w.spend == "" {
			return ""
		}
		return derive("pub", w.spend)
	})
}

func fakeAddress(w *fakeWallet, account, index uint32) string {
	return fmt.Sprintf("%s%s/%d/%d", w.network, w.view[:8], account, index)
}

func (f *fakeEngine) Address(_ context.Context, id xmrkeys.HandleID, account, index uint32) (string, error) {
	return f.field("get_address", id, func(w *fakeWallet) string { return fakeAddress(w, account, index) })
}

func (f *fakeEngine) AddressIndex(_ context.Context, id xmrkeys.HandleID, address string) (xmrkeys.SubaddressIndex, error) {
	f.enter()
	defer f.exit()
	w, err := f.wallet("get_address_index", id)
	if err != nil {
		return xmrkeys.SubaddressIndex{}, err
	}
	var idx xmrkeys.SubaddressIndex
	prefix := fmt.Sprintf("%s%s/", w.network, w.view[:8])
	if len(address) <= len(prefix) || address[:len(prefix)] != prefix {
		return idx, errors.Engine("get_address_index", "address does not belong to wallet")
	}
	if _, err := fmt.Sscanf(address[len(prefix):], "%d/%d", &idx.Account, &idx.Index); err != nil {
		return idx, stderrors.New("malformed subaddress")
	}
	return idx, nil
}

func (f *fakeEngine) Version(_ context.Context, id xmrkeys.HandleID) (xmrkeys.Version, error) {
	f.enter()
	defer f.exit()
	if _, err := f.wallet("get_version", id); err != nil {
		return xmrkeys.Version{}, err
	}
	return xmrkeys.Version{Number: 65552, Release: true}, nil
}

func (f *fakeEngine) IsWatchOnly(_ context.Context, id xmrkeys.HandleID) (bool, error) {
	f.enter()
	defer f.exit()
	w, err := f.wallet("is_watch_only", id)
	if err != nil {
		return false, err
	}
	return w.spend == "", nil
}

func (f *fakeEngine) Close(_ context.Context, id xmrkeys.HandleID, done xmrkeys.CloseDone) {
	f.enter()
	if f.closeErr != nil {
		err := f.closeErr
		f.finish(func() { done(err) })
		return
	}
	f.mu.Lock()
	if w, ok := f.wallets[id]; ok {
		w.closed = true
	}
	f.mu.Unlock()
	f.finish(func() { done(nil) })
}

func (f *fakeEngine) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	return nil
}

func (f *fakeEngine) isClosed(id xmrkeys.HandleID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	return ok && w.closed
}
