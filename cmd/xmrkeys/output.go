package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/wallet"
	"github.com/wippyai/xmr-keys/walletrpc"
)

type walletReport struct {
	Verification     *walletrpc.Report   `json:"verification,omitempty"`
	Network          string              `json:"network"`
	Mnemonic         string              `json:"mnemonic,omitempty"`
	MnemonicLanguage string              `json:"mnemonicLanguage,omitempty"`
	PrivateSpendKey  string              `json:"privateSpendKey,omitempty"`
	PrivateViewKey   string              `json:"privateViewKey"`
	PublicSpendKey   string              `json:"publicSpendKey"`
	PublicViewKey    string              `json:"publicViewKey"`
	PrimaryAddress   string              `json:"primaryAddress"`
	Subaddresses     []wallet.Subaddress `json:"subaddresses,omitempty"`
	Version          xmrkeys.Version     `json:"version"`
	WatchOnly        bool                `json:"watchOnly"`
}

// describe reads everything printable from w. accounts and subaddresses
// extend the address listing beyond the primary address.
func describe(ctx context.Context, w *wallet.KeysWallet, accounts, subaddresses uint32) (*walletReport, error) {
	r := &walletReport{}

	network, err := w.NetworkType(ctx)
	if err != nil {
		return nil, err
	}
	r.Network = network.String()

	fields := []struct {
		dst *string
		get func(context.Context) (string, error)
	}{
		{&r.Mnemonic, w.Mnemonic},
		{&r.MnemonicLanguage, w.MnemonicLanguage},
		{&r.PrivateSpendKey, w.PrivateSpendKey},
		{&r.PrivateViewKey, w.PrivateViewKey},
		{&r.PublicSpendKey, w.PublicSpendKey},
		{&r.PublicViewKey, w.PublicViewKey},
		{&r.PrimaryAddress, w.PrimaryAddress},
	}
	for _, f := range fields {
		if *f.dst, err = f.get(ctx); err != nil {
			return nil, err
		}
	}

	if r.WatchOnly, err = w.IsWatchOnly(ctx); err != nil {
		return nil, err
	}
	if r.Version, err = w.Version(ctx); err != nil {
		return nil, err
	}

	for account := uint32(0); account < accounts; account++ {
		for index := uint32(0); index < max(subaddresses, 1); index++ {
			if account == 0 && index == 0 {
				continue
			}
			sub, err := w.Subaddress(ctx, account, index)
			if err != nil {
				return nil, err
			}
			r.Subaddresses = append(r.Subaddresses, sub)
		}
	}
	return r, nil
}

// indices lists the positions covered by a report, primary first.
func (r *walletReport) indices() []xmrkeys.SubaddressIndex {
	out := []xmrkeys.SubaddressIndex{{}}
	for _, s := range r.Subaddresses {
		out = append(out, s.SubaddressIndex)
	}
	return out
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(out io.Writer, r *walletReport) {
	fmt.Fprintf(out, "Network:           %s\n", r.Network)
	if r.Mnemonic != "" {
		fmt.Fprintf(out, "Mnemonic:          %s\n", r.Mnemonic)
		fmt.Fprintf(out, "Language:          %s\n", r.MnemonicLanguage)
	}
	if r.PrivateSpendKey != "" {
		fmt.Fprintf(out, "Private spend key: %s\n", r.PrivateSpendKey)
	}
	fmt.Fprintf(out, "Private view key:  %s\n", r.PrivateViewKey)
	fmt.Fprintf(out, "Public spend key:  %s\n", r.PublicSpendKey)
	fmt.Fprintf(out, "Public view key:   %s\n", r.PublicViewKey)
	fmt.Fprintf(out, "Primary address:   %s\n", r.PrimaryAddress)
	fmt.Fprintf(out, "Watch-only:        %v\n", r.WatchOnly)
	fmt.Fprintf(out, "Engine version:    %d (release=%v)\n", r.Version.Number, r.Version.Release)

	if len(r.Subaddresses) > 0 {
		fmt.Fprintf(out, "\nSubaddresses:\n")
		for _, s := range r.Subaddresses {
			fmt.Fprintf(out, "  %d/%d  %s\n", s.Account, s.Index, s.Address)
		}
	}

	if v := r.Verification; v != nil {
		fmt.Fprintf(out, "\nWallet RPC check: %d addresses, %d mismatches\n", v.Checked, len(v.Mismatches))
		for _, m := range v.Mismatches {
			fmt.Fprintf(out, "  %d/%d  local %s  remote %s\n", m.Account, m.Index, m.Local, m.Remote)
		}
	}
}
