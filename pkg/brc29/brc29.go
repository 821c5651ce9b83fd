// Package brc29 derives BRC-29 payment scripts. A BRC-29 output is a P2PKH
// lock on a key derived between sender and recipient under the shared payment
// protocol, with the derivation invoice carried as a prefix/suffix pair.
package brc29

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
)

// ProtocolID is the BRC-29 payment protocol identifier.
const ProtocolID = "3241645161d8"

// Protocol is the BRC-29 protocol at counterparty security level.
var Protocol = sdk.Protocol{
	SecurityLevel: sdk.SecurityLevelEveryAppAndCounterparty,
	Protocol:      ProtocolID,
}

// KeyID is the per-output derivation invoice: a prefix shared by all outputs
// of a transaction and a per-output suffix.
type KeyID struct {
	DerivationPrefix string
	DerivationSuffix string
}

// Validate checks that both derivation parts are present.
func (k KeyID) Validate() error {
	if k.DerivationPrefix == "" {
		return fmt.Errorf("invalid key id: derivation prefix is required")
	}
	if k.DerivationSuffix == "" {
		return fmt.Errorf("invalid key id: derivation suffix is required")
	}
	return nil
}

// String returns the key id in the form used for key derivation.
func (k KeyID) String() string {
	return k.DerivationPrefix + " " + k.DerivationSuffix
}

// Lock builds the locking script paying the recipient under the BRC-29
// protocol. The sender's key deriver and the recipient's identity key
// determine the derived payment key.
func Lock(sender *sdk.KeyDeriver, keyID KeyID, recipient *ec.PublicKey) (*script.Script, error) {
	address, err := Address(sender, keyID, recipient, true)
	if err != nil {
		return nil, err
	}

	lockingScript, err := p2pkh.Lock(address)
	if err != nil {
		return nil, fmt.Errorf("failed to build locking script for brc29 address: %w", err)
	}
	return lockingScript, nil
}

// Address derives the payment address the sender locks funds to.
func Address(sender *sdk.KeyDeriver, keyID KeyID, recipient *ec.PublicKey, mainNet bool) (*script.Address, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender key deriver is required")
	}
	if recipient == nil {
		return nil, fmt.Errorf("recipient public key is required")
	}
	if err := keyID.Validate(); err != nil {
		return nil, err
	}

	derived, err := sender.DerivePublicKey(Protocol, keyID.String(), sdk.Counterparty{
		Type:         sdk.CounterpartyTypeOther,
		Counterparty: recipient,
	}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to derive brc29 payment key: %w", err)
	}

	address, err := script.NewAddressFromPublicKey(derived, mainNet)
	if err != nil {
		return nil, fmt.Errorf("failed to build address from derived key: %w", err)
	}
	return address, nil
}

var _ transaction.UnlockingScriptTemplate = (*UnlockingTemplate)(nil)

// UnlockingTemplate signs BRC-29 inputs with the recipient-side derived key.
type UnlockingTemplate struct {
	unlocker *p2pkh.P2PKH
}

// Unlock prepares an unlocking template for an output locked by sender to
// the holder of the recipient key deriver under the given key id.
func Unlock(sender *ec.PublicKey, keyID KeyID, recipient *sdk.KeyDeriver) (*UnlockingTemplate, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender public key is required")
	}
	if recipient == nil {
		return nil, fmt.Errorf("recipient key deriver is required")
	}
	if err := keyID.Validate(); err != nil {
		return nil, err
	}

	derived, err := recipient.DerivePrivateKey(Protocol, keyID.String(), sdk.Counterparty{
		Type:         sdk.CounterpartyTypeOther,
		Counterparty: sender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to derive brc29 unlocking key: %w", err)
	}

	unlocker, err := p2pkh.Unlock(derived, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build brc29 unlocker: %w", err)
	}
	return &UnlockingTemplate{unlocker: unlocker}, nil
}

// Sign produces the unlocking script for the input.
func (u *UnlockingTemplate) Sign(tx *transaction.Transaction, inputIndex uint32) (*script.Script, error) {
	unlockingScript, err := u.unlocker.Sign(tx, inputIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to sign input %d: %w", inputIndex, err)
	}
	return unlockingScript, nil
}

// EstimateLength estimates the unlocking script length for fee computation.
func (u *UnlockingTemplate) EstimateLength(tx *transaction.Transaction, inputIndex uint32) uint32 {
	return u.unlocker.EstimateLength(tx, inputIndex)
}
