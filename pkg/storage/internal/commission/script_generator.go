// Package commission builds the service-charge locking scripts added to
// created actions when a commission is configured.
package commission

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	crypto "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// ScriptGenerator derives per-transaction P2PKH scripts from the configured
// commission public key. Each script uses a fresh key offset so on-chain
// charges are unlinkable; the offset (WIF) is stored for later redemption.
type ScriptGenerator struct {
	offsetPrivGenerator func() (*ec.PrivateKey, error)
	pubKey              string
}

// NewScriptGenerator creates a generator bound to the commission public key.
func NewScriptGenerator(pubKey string) *ScriptGenerator {
	return &ScriptGenerator{
		offsetPrivGenerator: ec.NewPrivateKey,
		pubKey:              pubKey,
	}
}

// SetOffsetGenerator overrides the offset key source, for deterministic tests.
func (g *ScriptGenerator) SetOffsetGenerator(generator func() (*ec.PrivateKey, error)) {
	g.offsetPrivGenerator = generator
}

// Generate returns a fresh locking script and the key offset that unlocks it.
func (g *ScriptGenerator) Generate() (lockingScript *script.Script, keyOffset string, err error) {
	offsetPub, keyOffset, err := g.offsetPubKey()
	if err != nil {
		return nil, "", err
	}

	address, err := script.NewAddressFromPublicKey(offsetPub, true)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create address from public key: %w", err)
	}

	lockingScript, err = p2pkh.Lock(address)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create locking script: %w", err)
	}

	return lockingScript, keyOffset, nil
}

func (g *ScriptGenerator) offsetPubKey() (*ec.PublicKey, string, error) {
	pub, err := ec.PublicKeyFromString(g.pubKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse commission public key: %w", err)
	}

	offset, err := g.offsetPrivGenerator()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create key offset: %w", err)
	}

	sharedSecret, err := offset.DeriveSharedSecret(pub)
	if err != nil {
		return nil, "", fmt.Errorf("failed to derive shared secret: %w", err)
	}
	hashedSecret := crypto.Sha256(sharedSecret.ToDER())

	// offsetPub = pub + hashedSecret*G
	pointX, pointY := ec.S256().ScalarBaseMult(hashedSecret)
	sumX, sumY := ec.S256().Add(pointX, pointY, pub.X, pub.Y)

	return &ec.PublicKey{
		Curve: ec.S256(),
		X:     sumX,
		Y:     sumY,
	}, offset.Wif(), nil
}
