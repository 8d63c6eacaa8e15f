package walletrpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/moneropay/go-monero/walletrpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

// Config holds configuration for verifier creation
type Config struct {
	// Address is the monero-wallet-rpc JSON-RPC endpoint,
	// e.g. http://127.0.0.1:18083/json_rpc.
	Address string `yaml:"address"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds each HTTP request. 0 means 10s.
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond paces RPC calls. 0 means 5.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AddressSource derives addresses locally. *wallet.KeysWallet implements it.
type AddressSource interface {
	Address(ctx context.Context, account, index uint32) (string, error)
}

// Mismatch is one subaddress whose local and remote derivations differ.
type Mismatch struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
	xmrkeys.SubaddressIndex
}

// Report is the outcome of one Verify run.
type Report struct {
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Checked    int        `json:"checked"`
}

// OK reports whether every checked address matched.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Verifier cross-checks locally derived addresses against a wallet opened
// in monero-wallet-rpc.
type Verifier struct {
	client  *walletrpc.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New creates a verifier. No connection is made until Verify.
func New(cfg *Config) (*Verifier, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, errors.InvalidConfig("address", nil, "wallet rpc address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSecond := cfg.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	headers := map[string]string{}
	if cfg.Username != "" || cfg.Password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers["Authorization"] = "Basic " + token
	}

	client := walletrpc.New(walletrpc.Config{
		Address:       cfg.Address,
		CustomHeaders: headers,
		Client:        &http.Client{Timeout: timeout},
	})

	return &Verifier{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     Logger().With(zap.String("rpc", cfg.Address)),
	}, nil
}

func (v *Verifier) wait(ctx context.Context, op string) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return errors.RPC(op, err)
	}
	return nil
}

// Verify opens filename in the remote wallet, compares the address at each
// index with src, and closes it again. A local derivation failure aborts
// the run; differing addresses are reported, not returned as errors.
func (v *Verifier) Verify(ctx context.Context, src AddressSource, filename, password string, indices []xmrkeys.SubaddressIndex) (*Report, error) {
	if len(indices) == 0 {
		indices = []xmrkeys.SubaddressIndex{{}}
	}

	if err := v.wait(ctx, "open_wallet"); err != nil {
		return nil, err
	}
	err := v.client.OpenWallet(ctx, &walletrpc.OpenWalletRequest{Filename: filename, Password: password})
	if err != nil {
		return nil, errors.RPC("open_wallet", err)
	}
	defer func() {
		ctx := context.WithoutCancel(ctx)
		if err := v.wait(ctx, "close_wallet"); err != nil {
			v.log.Warn("close wallet skipped", zap.Error(err))
			return
		}
		if err := v.client.CloseWallet(ctx); err != nil {
			v.log.Warn("close wallet failed", zap.String("wallet", filename), zap.Error(err))
		}
	}()

	report := &Report{}
	for _, idx := range indices {
		local, err := src.Address(ctx, idx.Account, idx.Index)
		if err != nil {
			return nil, err
		}
		remote, err := v.remoteAddress(ctx, idx)
		if err != nil {
			return nil, err
		}
		report.Checked++
		if local != remote {
			report.Mismatches = append(report.Mismatches, Mismatch{
				SubaddressIndex: idx,
				Local:           local,
				Remote:          remote,
			})
			v.log.Warn("address mismatch",
				zap.Uint32("account", idx.Account),
				zap.Uint32("index", idx.Index))
		}
	}

	v.log.Debug("verified wallet",
		zap.String("wallet", filename),
		zap.Int("checked", report.Checked),
		zap.Int("mismatches", len(report.Mismatches)))
	return report, nil
}

func (v *Verifier) remoteAddress(ctx context.Context, idx xmrkeys.SubaddressIndex) (string, error) {
	const op = "get_address"
	if err := v.wait(ctx, op); err != nil {
		return "", err
	}
	resp, err := v.client.GetAddress(ctx, &walletrpc.GetAddressRequest{
		AccountIndex: uint64(idx.Account),
		AddressIndex: []uint64{uint64(idx.Index)},
	})
	if err != nil {
		return "", errors.RPC(op, err)
	}
	if len(resp.Addresses) == 0 {
		return "", errors.NotFound(op, "subaddress", fmt.Sprintf("%d/%d", idx.Account, idx.Index), nil)
	}
	return resp.Addresses[0].Address, nil
}
