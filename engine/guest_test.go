package engine

import (
	"testing"
)

// Test guest payloads, placed in the data section at fixed offsets.
const (
	guestHandleJSON    = `{"result":{"handle":7}}`
	guestMnemonicJSON  = `{"result":"sequence atlas unveil summon pebbles tuesday beer rudely snake rockets different fuselage woven tagged bested dented vegan hover rapid fawns obvious muppet randomly seasons randomly"}`
	guestErrorJSON     = `{"error":"invalid mnemonic"}`
	guestLanguagesJSON = `{"result":{"languages":["English","Deutsch"]}}`
	guestTrueJSON      = `{"result":true}`
	guestNullJSON      = `{"result":null}`
	guestAddressJSON   = `{"result":"5AjXkKFwLPMGSJgSMy9WAcWSdsNhPBGNA5Z3RMJa6WkZbBXoF5jQZEsJBr4FYhKGYEgcQ3ALs4Wmt9yaXwTdmyJnQJC6wmH"}`
	guestIndexJSON     = `{"result":{"account":1,"index":2}}`
	guestVersionJSON   = `{"result":{"number":65552,"release":true}}`
)

const guestMnemonic = "sequence atlas unveil summon pebbles tuesday beer rudely snake rockets different fuselage woven tagged bested dented vegan hover rapid fawns obvious muppet randomly seasons randomly"

const guestAddress = "5AjXkKFwLPMGSJgSMy9WAcWSdsNhPBGNA5Z3RMJa6WkZbBXoF5jQZEsJBr4FYhKGYEgcQ3ALs4Wmt9yaXwTdmyJnQJC6wmH"

type guestData struct {
	text   string
	offset uint32
}

var guestSegments = map[string]guestData{
	"handle":    {guestHandleJSON, 1024},
	"mnemonic":  {guestMnemonicJSON, 2048},
	"error":     {guestErrorJSON, 3072},
	"languages": {guestLanguagesJSON, 4096},
	"true":      {guestTrueJSON, 5120},
	"null":      {guestNullJSON, 5376},
	"address":   {guestAddressJSON, 5632},
	"index":     {guestIndexJSON, 6144},
	"version":   {guestVersionJSON, 6400},
}

const guestHeapBase = 8192

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func wasmSection(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func wasmVec(items [][]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

const (
	valI32 = 0x7f
	valI64 = 0x7e
)

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint32(len(results)))...)
	return append(out, results...)
}

// Guest type indices.
const (
	tMalloc = iota
	tFree
	tSignal3
	tSignal2
	tPacked0
	tPacked1
	tPacked3
)

type guestFunc struct {
	name string
	typ  uint32
	code []byte
}

func signal(cbLocal byte, seg string) []byte {
	d := guestSegments[seg]
	code := []byte{0x20, cbLocal, 0x41}
	code = append(code, sleb(int64(d.offset))...)
	code = append(code, 0x41)
	code = append(code, sleb(int64(len(d.text)))...)
	return append(code, 0x10, 0x00, 0x0b)
}

func packed(seg string) []byte {
	d := guestSegments[seg]
	code := []byte{0x42}
	code = append(code, sleb(int64(packPtrLen(d.offset, uint32(len(d.text)))))...)
	return append(code, 0x0b)
}

// buildGuest assembles a key engine module that answers every entry point
// with canned envelopes. Exports named in omit are left out.
//
// create_wallet_random signals a handle, create_wallet_from_mnemonic signals
// an engine error, create_wallet_from_keys returns without signaling.
func buildGuest(t *testing.T, omit ...string) []byte {
	t.Helper()

	skip := make(map[string]bool, len(omit))
	for _, name := range omit {
		skip[name] = true
	}

	types := [][]byte{
		tMalloc:  funcType([]byte{valI32}, []byte{valI32}),
		tFree:    funcType([]byte{valI32}, nil),
		tSignal3: funcType([]byte{valI32, valI32, valI32}, nil),
		tSignal2: funcType([]byte{valI32, valI32}, nil),
		tPacked0: funcType(nil, []byte{valI64}),
		tPacked1: funcType([]byte{valI32}, []byte{valI64}),
		tPacked3: funcType([]byte{valI32, valI32, valI32}, []byte{valI64}),
	}

	funcs := []guestFunc{
		// heap bump: old = heap; heap += size; return old
		{mallocAlloc, tMalloc, []byte{0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b}},
		{simpleFree, tFree, []byte{0x0b}},
		{fnCreateRandom, tSignal3, signal(2, "handle")},
		{fnCreateFromMnemonic, tSignal3, signal(2, "error")},
		{fnCreateFromKeys, tSignal3, []byte{0x0b}},
		{fnCloseWallet, tSignal2, signal(1, "null")},
		{fnMnemonicLanguages, tPacked0, packed("languages")},
		{fnMnemonic, tPacked1, packed("mnemonic")},
		{fnMnemonicLanguage, tPacked1, packed("error")},
		{fnPrivateSpendKey, tPacked1, packed("null")},
		{fnPrivateViewKey, tPacked1, packed("mnemonic")},
		{fnPublicViewKey, tPacked1, packed("mnemonic")},
		{fnPublicSpendKey, tPacked1, packed("mnemonic")},
		{fnAddress, tPacked3, packed("address")},
		{fnAddressIndex, tPacked3, packed("index")},
		{fnVersion, tPacked1, packed("version")},
		{fnIsWatchOnly, tPacked1, packed("true")},
	}

	var wasm []byte
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)
	wasm = append(wasm, wasmSection(1, wasmVec(types))...)

	imp := append(wasmName(HostModule), wasmName(HostOnDone)...)
	imp = append(imp, 0x00)
	imp = append(imp, uleb(tSignal3)...)
	wasm = append(wasm, wasmSection(2, wasmVec([][]byte{imp}))...)

	var fsec [][]byte
	for _, f := range funcs {
		fsec = append(fsec, uleb(f.typ))
	}
	wasm = append(wasm, wasmSection(3, wasmVec(fsec))...)

	if !skip[ExportMemory] {
		wasm = append(wasm, wasmSection(5, wasmVec([][]byte{{0x00, 0x01}}))...)
	}

	glob := []byte{valI32, 0x01, 0x41}
	glob = append(glob, sleb(guestHeapBase)...)
	glob = append(glob, 0x0b)
	wasm = append(wasm, wasmSection(6, wasmVec([][]byte{glob}))...)

	var exports [][]byte
	if !skip[ExportMemory] {
		exports = append(exports, append(wasmName(ExportMemory), 0x02, 0x00))
	}
	for i, f := range funcs {
		if skip[f.name] {
			continue
		}
		e := append(wasmName(f.name), 0x00)
		exports = append(exports, append(e, uleb(uint32(i+1))...))
	}
	wasm = append(wasm, wasmSection(7, wasmVec(exports))...)

	var bodies [][]byte
	for _, f := range funcs {
		body := append([]byte{0x00}, f.code...)
		bodies = append(bodies, append(uleb(uint32(len(body))), body...))
	}
	wasm = append(wasm, wasmSection(10, wasmVec(bodies))...)

	if !skip[ExportMemory] {
		var segs [][]byte
		for _, d := range guestSegments {
			seg := []byte{0x00, 0x41}
			seg = append(seg, sleb(int64(d.offset))...)
			seg = append(seg, 0x0b)
			seg = append(seg, wasmName(d.text)...)
			segs = append(segs, seg)
		}
		wasm = append(wasm, wasmSection(11, wasmVec(segs))...)
	}
	return wasm
}
