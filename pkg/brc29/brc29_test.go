package brc29

import (
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeriver(t *testing.T) *sdk.KeyDeriver {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return sdk.NewKeyDeriver(priv)
}

func TestKeyIDValidate(t *testing.T) {
	require.NoError(t, KeyID{DerivationPrefix: "a", DerivationSuffix: "b"}.Validate())
	require.Error(t, KeyID{DerivationSuffix: "b"}.Validate())
	require.Error(t, KeyID{DerivationPrefix: "a"}.Validate())
	assert.Equal(t, "a b", KeyID{DerivationPrefix: "a", DerivationSuffix: "b"}.String())
}

func TestSenderAndRecipientDeriveSameAddress(t *testing.T) {
	sender := newDeriver(t)
	recipient := newDeriver(t)
	keyID := KeyID{DerivationPrefix: "pfx", DerivationSuffix: "sfx"}

	senderView, err := Address(sender, keyID, recipient.IdentityKey(), true)
	require.NoError(t, err)

	recipientKey, err := recipient.DerivePrivateKey(Protocol, keyID.String(), sdk.Counterparty{
		Type:         sdk.CounterpartyTypeOther,
		Counterparty: sender.IdentityKey(),
	})
	require.NoError(t, err)

	recipientView, err := script.NewAddressFromPublicKey(recipientKey.PubKey(), true)
	require.NoError(t, err)

	assert.Equal(t, senderView.AddressString, recipientView.AddressString)
}

func TestLockProducesP2PKHScript(t *testing.T) {
	sender := newDeriver(t)
	keyID := KeyID{DerivationPrefix: "pfx", DerivationSuffix: "sfx"}

	lockingScript, err := Lock(sender, keyID, sender.IdentityKey())
	require.NoError(t, err)
	assert.True(t, lockingScript.IsP2PKH())
}

func TestLockRejectsIncompleteKeyID(t *testing.T) {
	sender := newDeriver(t)

	_, err := Lock(sender, KeyID{DerivationPrefix: "only"}, sender.IdentityKey())
	require.Error(t, err)

	_, err = Unlock(sender.IdentityKey(), KeyID{DerivationSuffix: "only"}, sender)
	require.Error(t, err)
}

func TestUnlockDerivesTemplate(t *testing.T) {
	sender := newDeriver(t)
	recipient := newDeriver(t)
	keyID := KeyID{DerivationPrefix: "pfx", DerivationSuffix: "sfx"}

	template, err := Unlock(sender.IdentityKey(), keyID, recipient)
	require.NoError(t, err)
	assert.Positive(t, template.EstimateLength(nil, 0))
}
