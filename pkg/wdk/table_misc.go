package wdk

import (
	"time"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// TableCertificate is a subject-bound credential issued by a certifier.
type TableCertificate struct {
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	CertificateID      uint      `json:"certificateId"`
	UserID             int       `json:"userId"`
	Type               string    `json:"type"`
	SerialNumber       string    `json:"serialNumber"`
	Certifier          string    `json:"certifier"`
	Subject            string    `json:"subject"`
	Verifier           *string   `json:"verifier,omitempty"`
	RevocationOutpoint string    `json:"revocationOutpoint"`
	Signature          string    `json:"signature"`
	IsDeleted          bool      `json:"isDeleted"`

	Fields []TableCertificateField `json:"fields,omitempty"`
}

// TableCertificateField is one typed field of a certificate.
type TableCertificateField struct {
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CertificateID uint      `json:"certificateId"`
	UserID        int       `json:"userId"`
	FieldName     string    `json:"fieldName"`
	FieldValue    string    `json:"fieldValue"`
	MasterKey     string    `json:"masterKey"`
}

// TableCommission records a service-charge output linked to a transaction.
type TableCommission struct {
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
	CommissionID  uint                         `json:"commissionId"`
	UserID        int                          `json:"userId"`
	TransactionID uint                         `json:"transactionId"`
	Satoshis      uint64                       `json:"satoshis"`
	KeyOffset     string                       `json:"keyOffset"`
	IsRedeemed    bool                         `json:"isRedeemed"`
	LockingScript primitives.ExplicitByteArray `json:"lockingScript"`
}

// TableMonitorEvent is an operational audit entry written by the monitor.
type TableMonitorEvent struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	EventID   uint      `json:"id"`
	Event     string    `json:"event"`
	Details   string    `json:"details,omitempty"`
}

// TableSyncState tracks per-user synchronization with a remote storage identity.
type TableSyncState struct {
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	SyncStateID        uint       `json:"syncStateId"`
	UserID             int        `json:"userId"`
	StorageIdentityKey string     `json:"storageIdentityKey"`
	StorageName        string     `json:"storageName"`
	Status             string     `json:"status"`
	Init               bool       `json:"init"`
	RefNum             string     `json:"refNum"`
	SyncMap            string     `json:"syncMap,omitempty"`
	When               *time.Time `json:"when,omitempty"`
	Satoshis           *int64     `json:"satoshis,omitempty"`
	ErrorLocal         *string    `json:"errorLocal,omitempty"`
	ErrorOther         *string    `json:"errorOther,omitempty"`
}

// TableSettings is the singleton row describing a storage identity.
type TableSettings struct {
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	StorageIdentityKey string          `json:"storageIdentityKey"`
	StorageName        string          `json:"storageName"`
	Chain              defs.BSVNetwork `json:"chain"`
	DbType             defs.DBType     `json:"dbtype"`
	MaxOutputScript    int             `json:"maxOutputScript"`
}
