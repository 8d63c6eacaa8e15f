package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/xmr-keys/engine"
	"github.com/wippyai/xmr-keys/queue"
	"github.com/wippyai/xmr-keys/wallet"
	"github.com/wippyai/xmr-keys/walletrpc"
)

func main() {
	fs := flag.NewFlagSet("xmrkeys", flag.ExitOnError)
	var (
		configFile   = fs.String("config", "", "YAML config file (flags override it)")
		_            = fs.String("wasm", "", "Path to key engine wasm file")
		_            = fs.String("network", "", "mainnet, testnet or stagenet")
		_            = fs.String("mnemonic", "", "Restore from mnemonic")
		_            = fs.String("seed-offset", "", "Seed offset for mnemonic restore")
		promptOffset = fs.Bool("prompt-offset", false, "Read the seed offset from the terminal")
		_            = fs.String("address", "", "Restore from keys: primary address")
		_            = fs.String("view-key", "", "Restore from keys: private view key")
		_            = fs.String("spend-key", "", "Restore from keys: private spend key")
		_            = fs.String("language", "", "Mnemonic language for new wallets")
		_            = fs.Uint64("restore-height", 0, "Restore height (mnemonic and keys modes)")
		_            = fs.Uint("accounts", 0, "Accounts to list subaddresses for (0 prints the primary address only)")
		_            = fs.Uint("subaddresses", 0, "Subaddresses to list per account")
		_            = fs.Bool("json", false, "Print JSON instead of text")
		_            = fs.String("log-level", "", "Log level (debug, info, warn, error); empty disables")
		_            = fs.String("rpc", "", "monero-wallet-rpc JSON-RPC address for cross-checking")
		_            = fs.String("verify-wallet", "", "Wallet file to open in monero-wallet-rpc for cross-checking")
		languages    = fs.Bool("languages", false, "List mnemonic languages and exit")
	)
	_ = fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*configFile)
	if err == nil {
		err = applyFlags(fs, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.Wasm == "" {
		fmt.Fprintln(os.Stderr, "Usage: xmrkeys -wasm <engine.wasm> -network <net> [-mnemonic m | -view-key k ...]")
		fmt.Fprintln(os.Stderr, "       xmrkeys -wasm <engine.wasm> -languages")
		fmt.Fprintln(os.Stderr, "       xmrkeys -config xmrkeys.yaml")
		os.Exit(1)
	}

	if *promptOffset {
		offset, err := readSecret(os.Stdin, os.Stderr, "Seed offset: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Wallet.SeedOffset = offset
	}

	if err := run(context.Background(), cfg, *languages, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *fileConfig, listLanguages bool, out io.Writer) error {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	engine.SetLogger(log.Named("engine"))
	queue.SetLogger(log.Named("queue"))
	wallet.SetLogger(log.Named("wallet"))
	walletrpc.SetLogger(log.Named("walletrpc"))

	loader := wallet.NewLoader(engine.FileSource(cfg.Wasm, &engine.Config{Stderr: os.Stderr}))
	defer func() {
		if err := loader.Close(ctx); err != nil {
			log.Warn("close engine", zap.Error(err))
		}
	}()

	mod, err := loader.Module(ctx)
	if err != nil {
		return fmt.Errorf("load engine: %w", err)
	}

	if listLanguages {
		langs, err := mod.MnemonicLanguages(ctx)
		if err != nil {
			return err
		}
		if cfg.JSON {
			return writeJSON(out, map[string][]string{"languages": langs})
		}
		fmt.Fprintln(out, strings.Join(langs, "\n"))
		return nil
	}

	w, err := wallet.Create(ctx, mod, &cfg.Wallet)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	defer func() {
		if err := w.Close(ctx, false); err != nil {
			log.Warn("close wallet", zap.Error(err))
		}
	}()

	report, err := describe(ctx, w, cfg.Accounts, cfg.Subaddresses)
	if err != nil {
		return err
	}

	if cfg.VerifyWallet != "" {
		if cfg.RPC == nil || cfg.RPC.Address == "" {
			return fmt.Errorf("-verify-wallet needs -rpc")
		}
		v, err := walletrpc.New(cfg.RPC)
		if err != nil {
			return err
		}
		report.Verification, err = v.Verify(ctx, w, cfg.VerifyWallet, "", report.indices())
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
	}

	if cfg.JSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		writeText(out, report)
	}

	if v := report.Verification; v != nil && !v.OK() {
		return fmt.Errorf("wallet rpc reported %d mismatched addresses", len(v.Mismatches))
	}
	return nil
}

// readSecret prompts on prompt and reads one line from in without echo
// when in is a terminal.
func readSecret(in *os.File, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
