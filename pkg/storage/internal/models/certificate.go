package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Certificate is an identity certificate held for a user. A user holds at
// most one certificate per (certifier, type, serialNumber); acquiring the
// same certificate again replaces its fields instead of duplicating the row.
// Relinquishing soft-deletes, so the unique index spans the deleted rows too.
type Certificate struct {
	gorm.Model

	Type               string `gorm:"type:varchar(100);not null;uniqueIndex:idx_certifier_type_serial_number_user_id"`
	SerialNumber       string `gorm:"type:varchar(100);not null;uniqueIndex:idx_certifier_type_serial_number_user_id"`
	Certifier          string `gorm:"type:varchar(100);not null;uniqueIndex:idx_certifier_type_serial_number_user_id"`
	Subject            string `gorm:"type:varchar(100);not null"`
	Verifier           string `gorm:"type:varchar(100)"`
	RevocationOutpoint string `gorm:"type:varchar(100);not null"`
	Signature          string `gorm:"type:varchar(255);not null"`

	UserID            int                 `gorm:"uniqueIndex:idx_certifier_type_serial_number_user_id"`
	CertificateFields []*CertificateField `gorm:"foreignKey:CertificateID"`
}

// CertificateField is one encrypted field of a Certificate, keyed by field
// name within its certificate. MasterKey is the field's encryption key,
// itself encrypted for the subject.
type CertificateField struct {
	CreatedAt time.Time
	UpdatedAt time.Time

	FieldName  string `gorm:"type:varchar(100);not null;uniqueIndex:idx_field_name_certificate_id"`
	FieldValue string `gorm:"type:varchar(100);not null"`
	MasterKey  string `gorm:"type:varchar(255);not null"`

	UserID        int
	CertificateID uint `gorm:"uniqueIndex:idx_field_name_certificate_id"`
}

// BeforeCreate keeps re-inserts of an existing field name idempotent.
func (cf *CertificateField) BeforeCreate(tx *gorm.DB) error {
	tx.Statement.AddClause(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "field_name"},
			{Name: "certificate_id"},
		},
		DoNothing: true,
	})

	return nil
}
