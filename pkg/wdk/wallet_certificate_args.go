package wdk

import (
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// AcquireCertificateArgs stores a certificate issued elsewhere directly into
// the wallet, together with the keyring that lets the subject decrypt its
// fields.
type AcquireCertificateArgs struct {
	Type               primitives.Base64String `json:"type"`
	SerialNumber       primitives.Base64String `json:"serialNumber"`
	Certifier          primitives.PubKeyHex    `json:"certifier"`
	RevocationOutpoint primitives.OutpointString `json:"revocationOutpoint"`
	Signature          primitives.HexString    `json:"signature"`

	// Fields maps field names to their encrypted values.
	Fields map[string]string `json:"fields"`

	// KeyringForSubject maps field names to the field master keys encrypted
	// for the wallet owner.
	KeyringForSubject map[string]string `json:"keyringForSubject"`
}

// ProveCertificateArgs selects a stored certificate and the fields to reveal
// to a verifier.
type ProveCertificateArgs struct {
	Type           primitives.Base64String `json:"type"`
	SerialNumber   primitives.Base64String `json:"serialNumber"`
	Certifier      primitives.PubKeyHex    `json:"certifier"`
	FieldsToReveal []string                `json:"fieldsToReveal"`
	Verifier       primitives.PubKeyHex    `json:"verifier"`
}

// ProveCertificateResult carries the keyring that lets the verifier decrypt
// the revealed fields.
type ProveCertificateResult struct {
	KeyringForVerifier map[string]string `json:"keyringForVerifier"`
}
