package repo

import (
	"context"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"gorm.io/gorm"
)

// Certificates is the repository of user certificates.
type Certificates struct {
	db *gorm.DB
}

// NewCertificates creates a certificates repository.
func NewCertificates(db *gorm.DB) *Certificates {
	return &Certificates{db: db}
}

// InsertCertificate stores the certificate with its fields.
func (c *Certificates) InsertCertificate(ctx context.Context, certificate *models.Certificate) (uint, error) {
	err := c.db.WithContext(ctx).Create(certificate).Error
	if err != nil {
		return 0, fmt.Errorf("failed to insert certificate: %w", err)
	}
	return certificate.ID, nil
}

// CertificatesQuery filters a certificate listing.
type CertificatesQuery struct {
	UserID       int
	Types        []string
	Certifiers   []string
	SerialNumber *string
	Subject      *string
	Limit        int
	Offset       int
}

// ListCertificates returns a page of certificates with their fields, along
// with the unpaged total.
func (c *Certificates) ListCertificates(ctx context.Context, q CertificatesQuery) ([]*models.Certificate, int64, error) {
	base := c.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("user_id = ?", q.UserID)

	if len(q.Types) > 0 {
		base = base.Where("type IN ?", q.Types)
	}
	if len(q.Certifiers) > 0 {
		base = base.Where("certifier IN ?", q.Certifiers)
	}
	if q.SerialNumber != nil {
		base = base.Where("serial_number = ?", *q.SerialNumber)
	}
	if q.Subject != nil {
		base = base.Where("subject = ?", *q.Subject)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count certificates: %w", err)
	}

	var certificates []*models.Certificate
	err := base.
		Preload("CertificateFields").
		Order("created_at ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&certificates).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list certificates: %w", err)
	}

	return certificates, total, nil
}

// RelinquishCertificate soft-deletes the certificate identified by type,
// serial number and certifier.
func (c *Certificates) RelinquishCertificate(ctx context.Context, userID int, certType, serialNumber, certifier string) error {
	result := c.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND serial_number = ? AND certifier = ?",
			userID, certType, serialNumber, certifier).
		Delete(&models.Certificate{})
	if result.Error != nil {
		return fmt.Errorf("failed to relinquish certificate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("certificate: %w", werr.ErrNotFound)
	}
	return nil
}
