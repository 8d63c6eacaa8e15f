package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/wallet"
	"github.com/wippyai/xmr-keys/walletrpc"
)

// fileConfig is the optional YAML config file. Flags override it.
type fileConfig struct {
	RPC          *walletrpc.Config `yaml:"rpc"`
	Wasm         string            `yaml:"wasm"`
	LogLevel     string            `yaml:"log_level"`
	VerifyWallet string            `yaml:"verify_wallet"`
	Wallet       wallet.Config     `yaml:"wallet"`
	Subaddresses uint32            `yaml:"subaddresses"`
	Accounts     uint32            `yaml:"accounts"`
	JSON         bool              `yaml:"json"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags copies every flag set on the command line over cfg.
func applyFlags(fs *flag.FlagSet, cfg *fileConfig) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "wasm":
			cfg.Wasm = v
		case "log-level":
			cfg.LogLevel = v
		case "json":
			cfg.JSON = v == "true"
		case "network":
			cfg.Wallet.NetworkType, err = xmrkeys.ParseNetworkType(v)
		case "mnemonic":
			cfg.Wallet.Mnemonic = v
		case "seed-offset":
			cfg.Wallet.SeedOffset = v
		case "address":
			cfg.Wallet.PrimaryAddress = v
		case "view-key":
			cfg.Wallet.PrivateViewKey = v
		case "spend-key":
			cfg.Wallet.PrivateSpendKey = v
		case "language":
			cfg.Wallet.Language = v
		case "restore-height":
			cfg.Wallet.RestoreHeight, err = strconv.ParseUint(v, 10, 64)
		case "accounts":
			cfg.Accounts, err = parseUint32(v)
		case "subaddresses":
			cfg.Subaddresses, err = parseUint32(v)
		case "rpc":
			if cfg.RPC == nil {
				cfg.RPC = &walletrpc.Config{}
			}
			cfg.RPC.Address = v
		case "verify-wallet":
			cfg.VerifyWallet = v
		}
		if err != nil {
			err = fmt.Errorf("flag -%s: %w", f.Name, err)
		}
	})
	return err
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return uint32(n), err
}

// newLogger builds the process logger. An empty level disables logging.
func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
