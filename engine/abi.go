package engine

// Host import module the guest signals completions through.
const (
	HostModule = "xmrkeys"
	HostOnDone = "on_done"
)

const (
	ExportMemory = "memory"

	CabiRealloc = "cabi_realloc"
	CabiFree    = "cabi_free"

	// Emscripten and hand-written guests export libc-style allocators
	mallocAlloc = "malloc"
	simpleAlloc = "alloc"
	simpleFree  = "free"
)

// Completion-signaled entry points: (req_ptr, req_len, cb) -> ()
const (
	fnCreateRandom       = "create_wallet_random"
	fnCreateFromMnemonic = "create_wallet_from_mnemonic"
	fnCreateFromKeys     = "create_wallet_from_keys"
	// (handle, cb) -> ()
	fnCloseWallet = "close_wallet"
)

// Accessors returning a packed (ptr<<32 | len) JSON envelope.
const (
	fnMnemonicLanguages = "get_mnemonic_languages"
	fnMnemonic          = "get_mnemonic"
	fnMnemonicLanguage  = "get_mnemonic_language"
	fnPrivateSpendKey   = "get_private_spend_key"
	fnPrivateViewKey    = "get_private_view_key"
	fnPublicViewKey     = "get_public_view_key"
	fnPublicSpendKey    = "get_public_spend_key"
	fnAddress           = "get_address"
	fnAddressIndex      = "get_address_index"
	fnVersion           = "get_version"
	fnIsWatchOnly       = "is_watch_only"
)

// entryPoints lists every function export the host calls, in the order
// they are checked at load time.
var entryPoints = []string{
	fnCreateRandom,
	fnCreateFromMnemonic,
	fnCreateFromKeys,
	fnCloseWallet,
	fnMnemonicLanguages,
	fnMnemonic,
	fnMnemonicLanguage,
	fnPrivateSpendKey,
	fnPrivateViewKey,
	fnPublicViewKey,
	fnPublicSpendKey,
	fnAddress,
	fnAddressIndex,
	fnVersion,
	fnIsWatchOnly,
}

var (
	allocNames = []string{CabiRealloc, mallocAlloc, simpleAlloc}
	freeNames  = []string{simpleFree, CabiFree}
)

// packPtrLen packs a guest buffer reference the way accessors return it.
func packPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// unpackPtrLen splits an accessor return value into pointer and length.
func unpackPtrLen(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}
