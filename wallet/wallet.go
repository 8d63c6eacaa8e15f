package wallet

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
	"github.com/wippyai/xmr-keys/queue"
)

// KeysWallet is a keys-only wallet: key material and address derivation,
// no chain state and no file on disk.
//
// KeysWallet is safe for concurrent use. Every engine call goes through the
// module's queue.
type KeysWallet struct {
	mod     *Module
	handle  *xmrkeys.Handle
	log     *zap.Logger
	network xmrkeys.NetworkType
	closeMu sync.Mutex
	closed  atomic.Bool
}

func newKeysWallet(mod *Module, id xmrkeys.HandleID, network xmrkeys.NetworkType) *KeysWallet {
	return &KeysWallet{
		mod:     mod,
		handle:  xmrkeys.NewHandle(id),
		network: network,
		log:     mod.log.With(zap.Uint32("handle", uint32(id))),
	}
}

// Create validates cfg and creates a wallet in the mode it selects.
func Create(ctx context.Context, mod *Module, cfg *Config) (*KeysWallet, error) {
	c, err := Validate(cfg)
	if err != nil {
		return nil, err
	}

	switch c := c.(type) {
	case RandomCreation:
		return CreateRandom(ctx, mod, c.Network, c.Language)
	case MnemonicCreation:
		return CreateFromMnemonic(ctx, mod, c.Network, c.Mnemonic, c.SeedOffset)
	case KeysCreation:
		return CreateFromKeys(ctx, mod, c.Network, c.Address, c.PrivateViewKey, c.PrivateSpendKey, c.Language)
	default:
		return nil, errors.Unsupported("create_wallet", "unknown creation mode")
	}
}

// CreateRandom creates a wallet from a fresh random seed. An empty
// language means English.
func CreateRandom(ctx context.Context, mod *Module, network xmrkeys.NetworkType, language string) (*KeysWallet, error) {
	if !network.Valid() {
		return nil, invalid("network_type", RuleNetworkType, "network type must be mainnet, testnet or stagenet")
	}
	req := xmrkeys.RandomRequest{Network: network, Language: languageOrDefault(language)}
	return create(ctx, mod, "create_wallet_random", network, func(ctx context.Context, eng xmrkeys.Engine, done xmrkeys.CreateDone) {
		eng.CreateRandom(ctx, req, done)
	})
}

// CreateFromMnemonic restores a wallet from a mnemonic and an optional
// seed offset.
func CreateFromMnemonic(ctx context.Context, mod *Module, network xmrkeys.NetworkType, mnemonic, seedOffset string) (*KeysWallet, error) {
	if !network.Valid() {
		return nil, invalid("network_type", RuleNetworkType, "network type must be mainnet, testnet or stagenet")
	}
	if mnemonic == "" {
		return nil, invalid("mnemonic", RuleMnemonicRequired, "mnemonic is required")
	}
	req := xmrkeys.MnemonicRequest{Network: network, Mnemonic: mnemonic, SeedOffset: seedOffset}
	return create(ctx, mod, "create_wallet_from_mnemonic", network, func(ctx context.Context, eng xmrkeys.Engine, done xmrkeys.CreateDone) {
		eng.CreateFromMnemonic(ctx, req, done)
	})
}

// CreateFromKeys restores a wallet from key material. Any of address,
// viewKey and spendKey may be empty; the engine derives what it can.
func CreateFromKeys(ctx context.Context, mod *Module, network xmrkeys.NetworkType, address, viewKey, spendKey, language string) (*KeysWallet, error) {
	if !network.Valid() {
		return nil, invalid("network_type", RuleNetworkType, "network type must be mainnet, testnet or stagenet")
	}
	req := xmrkeys.KeysRequest{
		Network:         network,
		Address:         address,
		PrivateViewKey:  viewKey,
		PrivateSpendKey: spendKey,
		Language:        languageOrDefault(language),
	}
	return create(ctx, mod, "create_wallet_from_keys", network, func(ctx context.Context, eng xmrkeys.Engine, done xmrkeys.CreateDone) {
		eng.CreateFromKeys(ctx, req, done)
	})
}

func create(ctx context.Context, mod *Module, op string, network xmrkeys.NetworkType, call func(context.Context, xmrkeys.Engine, xmrkeys.CreateDone)) (*KeysWallet, error) {
	f, err := queue.SubmitAsync(ctx, mod.queue, op, func(ctx context.Context, complete func(xmrkeys.HandleID, error)) {
		call(ctx, mod.engine, xmrkeys.CreateDone(complete))
	})
	if err != nil {
		return nil, err
	}

	id, err := f.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && err == ctxErr {
			go mod.reclaim(op, f)
		}
		return nil, err
	}

	w := newKeysWallet(mod, id, network)
	w.log.Debug("wallet created", zap.String("op", op), zap.Stringer("network", network))
	return w, nil
}

// reclaim closes a wallet whose creator stopped waiting for it, so the
// engine does not hold it forever.
func (m *Module) reclaim(op string, f *queue.Future[xmrkeys.HandleID]) {
	ctx := context.Background()
	id, err := f.Wait(ctx)
	if err != nil {
		return
	}
	_, err = queue.DoAsync(ctx, m.queue, "close_wallet", func(ctx context.Context, complete func(struct{}, error)) {
		m.engine.Close(ctx, id, func(err error) { complete(struct{}{}, err) })
	})
	m.log.Debug("reclaimed abandoned wallet",
		zap.String("op", op),
		zap.Uint32("handle", uint32(id)),
		zap.Error(err))
}

// call runs fn on the queue against the wallet's handle. fn takes the
// engine first so Engine method expressions fit. The handle is checked
// again on the worker: a close queued ahead of fn invalidates it.
func call[T any](ctx context.Context, w *KeysWallet, op string, fn func(xmrkeys.Engine, context.Context, xmrkeys.HandleID) (T, error)) (T, error) {
	var zero T
	if w.closed.Load() {
		return zero, errors.Closed(op)
	}
	return queue.Do(ctx, w.mod.queue, op, func(ctx context.Context) (T, error) {
		id, ok := w.handle.ID()
		if !ok {
			return zero, errors.Closed(op)
		}
		return fn(w.mod.engine, ctx, id)
	})
}

// Mnemonic returns the seed phrase, or "" if the wallet has none.
func (w *KeysWallet) Mnemonic(ctx context.Context) (string, error) {
	return call(ctx, w, "get_mnemonic", xmrkeys.Engine.Mnemonic)
}

// MnemonicLanguage returns the language of the seed phrase.
func (w *KeysWallet) MnemonicLanguage(ctx context.Context) (string, error) {
	return call(ctx, w, "get_mnemonic_language", xmrkeys.Engine.MnemonicLanguage)
}

// PrivateSpendKey returns "" for watch-only wallets.
func (w *KeysWallet) PrivateSpendKey(ctx context.Context) (string, error) {
	return call(ctx, w, "get_private_spend_key", xmrkeys.Engine.PrivateSpendKey)
}

func (w *KeysWallet) PrivateViewKey(ctx context.Context) (string, error) {
	return call(ctx, w, "get_private_view_key", xmrkeys.Engine.PrivateViewKey)
}

func (w *KeysWallet) PublicViewKey(ctx context.Context) (string, error) {
	return call(ctx, w, "get_public_view_key", xmrkeys.Engine.PublicViewKey)
}

func (w *KeysWallet) PublicSpendKey(ctx context.Context) (string, error) {
	return call(ctx, w, "get_public_spend_key", xmrkeys.Engine.PublicSpendKey)
}

// Address derives the address of subaddress index within account.
func (w *KeysWallet) Address(ctx context.Context, account, index uint32) (string, error) {
	return call(ctx, w, "get_address", func(eng xmrkeys.Engine, ctx context.Context, id xmrkeys.HandleID) (string, error) {
		return eng.Address(ctx, id, account, index)
	})
}

// PrimaryAddress is Address(0, 0).
func (w *KeysWallet) PrimaryAddress(ctx context.Context) (string, error) {
	return w.Address(ctx, 0, 0)
}

// Subaddress pairs an address with its position in the wallet.
type Subaddress struct {
	Address string `json:"address" yaml:"address"`
	xmrkeys.SubaddressIndex
}

// Subaddress derives the address at (account, index).
func (w *KeysWallet) Subaddress(ctx context.Context, account, index uint32) (Subaddress, error) {
	addr, err := w.Address(ctx, account, index)
	if err != nil {
		return Subaddress{}, err
	}
	return Subaddress{
		Address:         addr,
		SubaddressIndex: xmrkeys.SubaddressIndex{Account: account, Index: index},
	}, nil
}

// AddressIndex finds which subaddress of this wallet address is. Every
// engine or decoding failure is reported as not found; the cause is kept.
func (w *KeysWallet) AddressIndex(ctx context.Context, address string) (xmrkeys.SubaddressIndex, error) {
	const op = "get_address_index"
	return call(ctx, w, op, func(eng xmrkeys.Engine, ctx context.Context, id xmrkeys.HandleID) (xmrkeys.SubaddressIndex, error) {
		idx, err := eng.AddressIndex(ctx, id, address)
		if err != nil {
			return xmrkeys.SubaddressIndex{}, errors.NotFound(op, "address", address, err)
		}
		return idx, nil
	})
}

// Accounts is not available: a keys-only wallet keeps no account registry.
func (w *KeysWallet) Accounts(_ context.Context) ([]xmrkeys.SubaddressIndex, error) {
	const op = "get_accounts"
	if w.closed.Load() {
		return nil, errors.Closed(op)
	}
	return nil, errors.Unsupported(op, "keys-only wallet does not support account registry")
}

// IsWatchOnly reports whether the wallet lacks a private spend key.
func (w *KeysWallet) IsWatchOnly(ctx context.Context) (bool, error) {
	return call(ctx, w, "is_watch_only", xmrkeys.Engine.IsWatchOnly)
}

// Version reports the engine build the wallet runs on.
func (w *KeysWallet) Version(ctx context.Context) (xmrkeys.Version, error) {
	return call(ctx, w, "get_version", xmrkeys.Engine.Version)
}

// NetworkType returns the network the wallet was created for.
func (w *KeysWallet) NetworkType(_ context.Context) (xmrkeys.NetworkType, error) {
	if w.closed.Load() {
		return xmrkeys.NetworkUnset, errors.Closed("get_network_type")
	}
	return w.network, nil
}

// Path always fails: keys-only wallets have no file.
func (w *KeysWallet) Path() (string, error) {
	return "", errors.Unsupported("get_path", "keys-only wallet has no path")
}

// IsClosed reports whether Close has completed.
func (w *KeysWallet) IsClosed() bool {
	return w.closed.Load()
}

// Close releases the wallet in the engine. With save set, the module's
// Saver runs first and a save failure leaves the wallet open.
//
// Closing a closed wallet succeeds without doing anything. Calls queued
// after the close fail as closed. The Saver runs under the close lock and
// must not call Close on the same wallet.
func (w *KeysWallet) Close(ctx context.Context, save bool) error {
	const op = "close_wallet"

	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if w.closed.Load() {
		return nil
	}

	if save {
		if w.mod.saver == nil {
			return errors.Unsupported(op, "no saver configured for keys-only wallet")
		}
		if err := w.mod.saver.Save(ctx, w); err != nil {
			return err
		}
	}

	_, err := queue.DoAsync(ctx, w.mod.queue, op, func(ctx context.Context, complete func(struct{}, error)) {
		id, ok := w.handle.ID()
		if !ok {
			complete(struct{}{}, nil)
			return
		}
		w.mod.engine.Close(ctx, id, func(err error) {
			if err == nil && w.handle.Invalidate() {
				w.closed.Store(true)
			}
			complete(struct{}{}, err)
		})
	})
	if err != nil {
		return err
	}

	w.log.Debug("wallet closed", zap.Bool("saved", save))
	return nil
}
