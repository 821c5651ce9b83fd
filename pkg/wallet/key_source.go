package wallet

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
)

// WIF wraps a private key string in WIF encoding.
type WIF string

// PrivateKey decodes the WIF string.
func (w WIF) PrivateKey() (*ec.PrivateKey, error) {
	return ec.PrivateKeyFromWif(string(w)) //nolint:wrapcheck
}

// PrivateKeySource is any accepted form of the wallet root key:
// a DER hex string, a WIF string, a parsed private key or a ready key deriver.
type PrivateKeySource interface {
	string | WIF | *ec.PrivateKey | *sdk.KeyDeriver
}

func toKeyDeriver[KeySource PrivateKeySource](keySource KeySource) (*sdk.KeyDeriver, error) {
	switch k := any(keySource).(type) {
	case string:
		priv, err := ec.PrivateKeyFromHex(k)
		if err != nil {
			return nil, fmt.Errorf("cannot parse root key hex: %w", err)
		}
		return sdk.NewKeyDeriver(priv), nil
	case WIF:
		priv, err := k.PrivateKey()
		if err != nil {
			return nil, fmt.Errorf("cannot parse root key WIF: %w", err)
		}
		return sdk.NewKeyDeriver(priv), nil
	case *ec.PrivateKey:
		if k == nil {
			return nil, fmt.Errorf("root private key cannot be nil")
		}
		return sdk.NewKeyDeriver(k), nil
	case *sdk.KeyDeriver:
		if k == nil {
			return nil, fmt.Errorf("key deriver cannot be nil")
		}
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported key source type %T", k)
	}
}
