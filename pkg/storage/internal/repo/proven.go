package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Proven is the repository of proven transactions and proof requests.
type Proven struct {
	db *gorm.DB
}

// NewProven creates a proven transactions repository.
func NewProven(db *gorm.DB) *Proven {
	return &Proven{db: db}
}

// FindProvenByTxID returns the proven transaction for the txid, nil when absent.
func (p *Proven) FindProvenByTxID(ctx context.Context, txID string) (*models.ProvenTx, error) {
	var proven models.ProvenTx
	err := p.db.WithContext(ctx).Where("tx_id = ?", txID).First(&proven).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find proven tx: %w", err)
	}
	return &proven, nil
}

// InsertProven stores a verified proof, keeping the first writer's row when
// two monitors race on the same txid.
func (p *Proven) InsertProven(ctx context.Context, proven *models.ProvenTx) (*models.ProvenTx, error) {
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_id"}},
			DoNothing: true,
		}).
		Create(proven).Error
	if err != nil {
		return nil, fmt.Errorf("failed to insert proven tx: %w", err)
	}
	// Re-read so a lost race still yields the canonical row.
	return p.FindProvenByTxID(ctx, proven.TxID)
}

// FindReqByTxID returns the proof request for the txid, nil when absent.
func (p *Proven) FindReqByTxID(ctx context.Context, txID string) (*models.ProvenTxReq, error) {
	var req models.ProvenTxReq
	err := p.db.WithContext(ctx).Where("tx_id = ?", txID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find proven tx req: %w", err)
	}
	return &req, nil
}

// UpsertReq inserts the proof request or, when a row for the txid already
// exists, refreshes its status and payload.
func (p *Proven) UpsertReq(ctx context.Context, req *models.ProvenTxReq) error {
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "raw_tx", "input_beef", "notify", "updated_at"}),
		}).
		Create(req).Error
	if err != nil {
		return fmt.Errorf("failed to upsert proven tx req: %w", err)
	}
	return nil
}

// FindReqsByStatus returns up to limit requests in any of the statuses,
// oldest first.
func (p *Proven) FindReqsByStatus(ctx context.Context, statuses []wdk.ProvenTxReqStatus, limit int) ([]*models.ProvenTxReq, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}
	var reqs []*models.ProvenTxReq
	err := p.db.WithContext(ctx).
		Where("status IN ?", strs).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find proven tx reqs: %w", err)
	}
	return reqs, nil
}

// UpdateReqStatus moves the request to a new status, appending a history note.
func (p *Proven) UpdateReqStatus(ctx context.Context, reqID uint, status wdk.ProvenTxReqStatus, history string) error {
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("id = ?", reqID).
		Updates(map[string]any{
			"status":  string(status),
			"history": history,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update proven tx req status: %w", err)
	}
	return nil
}

// CompleteReq links the request to its proven row and marks it completed.
func (p *Proven) CompleteReq(ctx context.Context, reqID, provenTxID uint, history string) error {
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("id = ?", reqID).
		Updates(map[string]any{
			"status":       string(wdk.ProvenTxStatusCompleted),
			"proven_tx_id": provenTxID,
			"notified":     true,
			"history":      history,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete proven tx req: %w", err)
	}
	return nil
}

// SetReqBatch stamps the requests for the txids with a shared batch marker so
// the monitor retries them together.
func (p *Proven) SetReqBatch(ctx context.Context, txIDs []string, batch string) error {
	if len(txIDs) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("tx_id IN ?", txIDs).
		Update("batch", batch).Error
	if err != nil {
		return fmt.Errorf("failed to set batch for proven tx reqs: %w", err)
	}
	return nil
}

// UpdateReqStatusByTxID moves the request for the txid to a new status unless
// it already reached a terminal one.
func (p *Proven) UpdateReqStatusByTxID(ctx context.Context, txID string, status wdk.ProvenTxReqStatus) error {
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("tx_id = ? AND status NOT IN ?", txID, []string{
			string(wdk.ProvenTxStatusCompleted),
			string(wdk.ProvenTxStatusInvalid),
			string(wdk.ProvenTxStatusAborted),
		}).
		Update("status", string(status)).Error
	if err != nil {
		return fmt.Errorf("failed to update proven tx req status by txid: %w", err)
	}
	return nil
}

// IncrementAttemptsByTxIDs bumps the retry counter of every request in the batch.
func (p *Proven) IncrementAttemptsByTxIDs(ctx context.Context, txIDs []string) error {
	if len(txIDs) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("tx_id IN ?", txIDs).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to increment proof attempts: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the retry counter of the request.
func (p *Proven) IncrementAttempts(ctx context.Context, reqID uint) error {
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("id = ?", reqID).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to increment proof attempts: %w", err)
	}
	return nil
}

// FindProvenAboveHeight returns proven transactions mined at or above the
// height, the candidates a reorg can still orphan.
func (p *Proven) FindProvenAboveHeight(ctx context.Context, minHeight uint32) ([]*models.ProvenTx, error) {
	var rows []*models.ProvenTx
	err := p.db.WithContext(ctx).
		Where("height >= ?", minHeight).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find proven txs above height: %w", err)
	}
	return rows, nil
}

// DeleteProven hard-deletes an orphaned proven transaction row.
func (p *Proven) DeleteProven(ctx context.Context, provenTxID uint) error {
	err := p.db.WithContext(ctx).
		Unscoped().
		Delete(&models.ProvenTx{}, provenTxID).Error
	if err != nil {
		return fmt.Errorf("failed to delete proven tx: %w", err)
	}
	return nil
}

// ReopenReq puts the request for the txid back into the proof-polling loop,
// clearing any proven link. Unlike UpdateReqStatusByTxID this also reopens
// terminal requests; reorg handling and un-fail need that.
func (p *Proven) ReopenReq(ctx context.Context, txID string, history string) error {
	err := p.db.WithContext(ctx).
		Model(&models.ProvenTxReq{}).
		Where("tx_id = ?", txID).
		Updates(map[string]any{
			"status":       string(wdk.ProvenTxStatusUnmined),
			"proven_tx_id": nil,
			"notified":     false,
			"history":      history,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reopen proven tx req: %w", err)
	}
	return nil
}

// PurgeCompletedReqs hard-deletes completed and invalid requests older than
// the cutoff and returns how many rows went away.
func (p *Proven) PurgeCompletedReqs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := p.db.WithContext(ctx).
		Unscoped().
		Where("status IN ? AND updated_at < ?", []string{
			string(wdk.ProvenTxStatusCompleted),
			string(wdk.ProvenTxStatusInvalid),
		}, cutoff).
		Delete(&models.ProvenTxReq{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge proven tx reqs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
