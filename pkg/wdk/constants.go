package wdk

// BasketNameForChange is the basket holding wallet change outputs.
const BasketNameForChange = "default"

// AdminOriginator is the reserved originator used by internal admin paths.
// External callers presenting it are refused.
const AdminOriginator = "admin.originator"

// MaxOriginatorLength is the maximum originator length in UTF-8 bytes.
const MaxOriginatorLength = 250

// ProvidedBy values for outputs.
const (
	ProvidedByYou             = "you"
	ProvidedByStorage         = "storage"
	ProvidedByYouAndStorage   = "you-and-storage"
)

// Output purposes.
const (
	ChangePurpose        = "change"
	ServiceChargePurpose = "service-charge"
)

// OutputType classifies the locking template of an output.
type OutputType string

// Output types.
const (
	OutputTypeP2PKH  OutputType = "P2PKH"
	OutputTypeCustom OutputType = "custom"
)

// InternalizeProtocol selects how an internalized output is treated.
type InternalizeProtocol string

// Internalize protocols.
const (
	WalletPaymentProtocol   InternalizeProtocol = "wallet payment"
	BasketInsertionProtocol InternalizeProtocol = "basket insertion"
)

// SpecOp basket identifiers. List operations presented with one of these
// magic basket names are reinterpreted as metadata or aggregation queries.
// The magic values are sha256 hashes of the friendly operation names so
// they cannot collide with ordinary user baskets.
const (
	SpecOpWalletBalance        = "96e997d277a0bb18db32b96e1869814b001a77c1ad6a2f9ffcac6800f651c141"
	SpecOpInvalidChange        = "fa4b275af9411e9dfa0305d49a5a8fc1b2be1a2ac02aadafa968c14a128c958f"
	SpecOpSetWalletChangeParams = "414bdcb4b849808a5761d6910c6dea1b4f172000da1b61d7c0b99babb3abc366"
)

// Friendly names accepted by the wallet facade and mapped to SpecOp baskets.
const (
	SpecOpWalletBalanceName        = "wallet-balance"
	SpecOpInvalidChangeName        = "invalid-change"
	SpecOpSetWalletChangeParamsName = "set-wallet-change-params"
)

// SpecOpBasket maps a friendly SpecOp name to its magic basket string.
// Returns the input unchanged when it is not a known SpecOp name.
func SpecOpBasket(name string) string {
	switch name {
	case SpecOpWalletBalanceName:
		return SpecOpWalletBalance
	case SpecOpInvalidChangeName:
		return SpecOpInvalidChange
	case SpecOpSetWalletChangeParamsName:
		return SpecOpSetWalletChangeParams
	default:
		return name
	}
}

// IsSpecOpBasket reports whether the basket string is one of the SpecOp magics.
func IsSpecOpBasket(basket string) bool {
	switch basket {
	case SpecOpWalletBalance, SpecOpInvalidChange, SpecOpSetWalletChangeParams:
		return true
	default:
		return false
	}
}

// Tag meta-selectors consumed by list_outputs before the query is built.
const (
	TagSelectorAll     = "all"
	TagSelectorChange  = "change"
	TagSelectorSpent   = "spent"
	TagSelectorUnspent = "unspent"
	TagSelectorRelease = "release"
)

// MaxBEEFDepth caps parent-transaction recursion when assembling BEEF from
// storage; malformed data could otherwise cycle.
const MaxBEEFDepth = 4

// DefaultMaxScriptLength is the longest locking script stored inline.
const DefaultMaxScriptLength = 1024
