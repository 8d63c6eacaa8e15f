package engine

import (
	"github.com/goccy/go-json"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

// envelope is the JSON shape of every guest result.
type envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func unwrapEnvelope(op string, data []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Op(op).
			Detail("malformed result envelope").
			Cause(err).
			Build()
	}
	if env.Error != "" {
		return nil, errors.Engine(op, env.Error)
	}
	return env.Result, nil
}

func decodeResult(op string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Op(op).
			Detail("decode result").
			Cause(err).
			Build()
	}
	return nil
}

// Request bodies as the guest reads them.

type randomRequest struct {
	NetworkType int    `json:"networkType"`
	Language    string `json:"language"`
}

type mnemonicRequest struct {
	NetworkType int    `json:"networkType"`
	Mnemonic    string `json:"mnemonic"`
	SeedOffset  string `json:"seedOffset,omitempty"`
}

type keysRequest struct {
	NetworkType     int    `json:"networkType"`
	Address         string `json:"address"`
	PrivateViewKey  string `json:"privateViewKey"`
	PrivateSpendKey string `json:"privateSpendKey"`
	Language        string `json:"language"`
}

type createResult struct {
	Handle uint32 `json:"handle"`
}

type languagesResult struct {
	Languages []string `json:"languages"`
}

func newRandomRequest(req xmrkeys.RandomRequest) randomRequest {
	return randomRequest{
		NetworkType: req.Network.EngineCode(),
		Language:    req.Language,
	}
}

func newMnemonicRequest(req xmrkeys.MnemonicRequest) mnemonicRequest {
	return mnemonicRequest{
		NetworkType: req.Network.EngineCode(),
		Mnemonic:    req.Mnemonic,
		SeedOffset:  req.SeedOffset,
	}
}

func newKeysRequest(req xmrkeys.KeysRequest) keysRequest {
	return keysRequest{
		NetworkType:     req.Network.EngineCode(),
		Address:         req.Address,
		PrivateViewKey:  req.PrivateViewKey,
		PrivateSpendKey: req.PrivateSpendKey,
		Language:        req.Language,
	}
}
