package defs

import (
	"fmt"
)

// Commission configures an optional service charge added to every created action.
type Commission struct {
	// Satoshis is the fee amount; zero disables commissions.
	Satoshis uint64 `yaml:"satoshis"`

	// PubKeyHex locks the commission output to this compressed public key.
	PubKeyHex string `yaml:"pub_key_hex"`
}

// Enabled reports whether commission outputs should be created.
func (c Commission) Enabled() bool {
	return c.Satoshis > 0
}

// Validate checks the commission configuration.
func (c Commission) Validate() error {
	if c.Enabled() && c.PubKeyHex == "" {
		return fmt.Errorf("commission pub key is required when satoshis > 0")
	}
	return nil
}
