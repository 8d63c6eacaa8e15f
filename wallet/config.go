package wallet

import (
	"fmt"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

// Config describes a wallet to create. Empty strings and zero values mean
// the field is absent.
//
// The creation mode follows from which fields are set: a mnemonic restores
// from the phrase, any of PrimaryAddress, PrivateViewKey or PrivateSpendKey
// restores from keys, and neither creates a random wallet.
type Config struct {
	Password        string              `yaml:"password" json:"password,omitempty"`
	Mnemonic        string              `yaml:"mnemonic" json:"mnemonic,omitempty"`
	SeedOffset      string              `yaml:"seed_offset" json:"seedOffset,omitempty"`
	PrimaryAddress  string              `yaml:"primary_address" json:"primaryAddress,omitempty"`
	PrivateViewKey  string              `yaml:"private_view_key" json:"privateViewKey,omitempty"`
	PrivateSpendKey string              `yaml:"private_spend_key" json:"privateSpendKey,omitempty"`
	Language        string              `yaml:"language" json:"language,omitempty"`
	RestoreHeight   uint64              `yaml:"restore_height" json:"restoreHeight,omitempty"`
	NetworkType     xmrkeys.NetworkType `yaml:"network_type" json:"networkType,omitempty"`
	SaveCurrent     bool                `yaml:"save_current" json:"saveCurrent,omitempty"`
}

func (c *Config) hasKeys() bool {
	return c.PrimaryAddress != "" || c.PrivateViewKey != "" || c.PrivateSpendKey != ""
}

// Rule identifies which creation check a config failed. Rules are checked
// in numeric order and the first failure is reported.
type Rule int

const (
	RuleConfigPresent Rule = iota + 1
	RuleModeExclusive
	RuleNetworkType
	RuleSaveCurrent
	RuleMnemonicLanguage
	RuleKeysSeedOffset
	RuleRandomSeedOffset
	RuleRandomRestoreHeight

	// RuleMnemonicRequired is only checked by CreateFromMnemonic.
	RuleMnemonicRequired
)

func (r Rule) String() string {
	switch r {
	case RuleConfigPresent:
		return "config-present"
	case RuleModeExclusive:
		return "mode-exclusive"
	case RuleNetworkType:
		return "network-type"
	case RuleSaveCurrent:
		return "save-current"
	case RuleMnemonicLanguage:
		return "mnemonic-language"
	case RuleKeysSeedOffset:
		return "keys-seed-offset"
	case RuleRandomSeedOffset:
		return "random-seed-offset"
	case RuleRandomRestoreHeight:
		return "random-restore-height"
	case RuleMnemonicRequired:
		return "mnemonic-required"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// ViolatedRule returns the rule a validation error reports.
func ViolatedRule(err error) (Rule, bool) {
	var xe *errors.Error
	if !asError(err, &xe) || xe.Kind != errors.KindInvalidConfig {
		return 0, false
	}
	r, ok := xe.Value.(Rule)
	return r, ok
}

// Creation is a validated creation request: RandomCreation,
// MnemonicCreation or KeysCreation.
type Creation interface {
	creation()
}

// RandomCreation creates a wallet from a fresh random seed.
type RandomCreation struct {
	Language string
	Network  xmrkeys.NetworkType
}

// MnemonicCreation restores a wallet from its mnemonic.
type MnemonicCreation struct {
	Mnemonic      string
	SeedOffset    string
	RestoreHeight uint64
	Network       xmrkeys.NetworkType
}

// KeysCreation restores a wallet from key material. Any of the three key
// fields may be empty.
type KeysCreation struct {
	Address         string
	PrivateViewKey  string
	PrivateSpendKey string
	Language        string
	RestoreHeight   uint64
	Network         xmrkeys.NetworkType
}

func (RandomCreation) creation()   {}
func (MnemonicCreation) creation() {}
func (KeysCreation) creation()     {}

func invalid(field string, rule Rule, detail string) error {
	return errors.InvalidConfig(field, rule, detail)
}

// Validate checks cfg and resolves it into one creation mode.
func Validate(cfg *Config) (Creation, error) {
	if cfg == nil {
		return nil, invalid("", RuleConfigPresent, "wallet config is required")
	}

	hasMnemonic := cfg.Mnemonic != ""
	hasKeys := cfg.hasKeys()

	if hasMnemonic && hasKeys {
		return nil, invalid("mnemonic", RuleModeExclusive,
			"wallet may be initialized with a mnemonic or keys but not both")
	}
	if !cfg.NetworkType.Valid() {
		return nil, invalid("network_type", RuleNetworkType,
			"network type must be mainnet, testnet or stagenet")
	}
	if cfg.SaveCurrent {
		return nil, invalid("save_current", RuleSaveCurrent,
			"cannot save current wallet when creating keys-only wallet")
	}

	switch {
	case hasMnemonic:
		if cfg.Language != "" {
			return nil, invalid("language", RuleMnemonicLanguage,
				"cannot provide language when creating wallet from mnemonic")
		}
		return MnemonicCreation{
			Network:       cfg.NetworkType,
			Mnemonic:      cfg.Mnemonic,
			SeedOffset:    cfg.SeedOffset,
			RestoreHeight: cfg.RestoreHeight,
		}, nil

	case hasKeys:
		if cfg.SeedOffset != "" {
			return nil, invalid("seed_offset", RuleKeysSeedOffset,
				"cannot provide seed offset when creating wallet from keys")
		}
		return KeysCreation{
			Network:         cfg.NetworkType,
			Address:         cfg.PrimaryAddress,
			PrivateViewKey:  cfg.PrivateViewKey,
			PrivateSpendKey: cfg.PrivateSpendKey,
			Language:        languageOrDefault(cfg.Language),
			RestoreHeight:   cfg.RestoreHeight,
		}, nil

	default:
		if cfg.SeedOffset != "" {
			return nil, invalid("seed_offset", RuleRandomSeedOffset,
				"cannot provide seed offset when creating random wallet")
		}
		if cfg.RestoreHeight != 0 {
			return nil, invalid("restore_height", RuleRandomRestoreHeight,
				"cannot provide restore height when creating random wallet")
		}
		return RandomCreation{
			Network:  cfg.NetworkType,
			Language: languageOrDefault(cfg.Language),
		}, nil
	}
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return xmrkeys.DefaultLanguage
	}
	return lang
}
