package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transactions is the repository of wallet transactions.
type Transactions struct {
	db *gorm.DB
}

// NewTransactions creates a transactions repository.
func NewTransactions(db *gorm.DB) *Transactions {
	return &Transactions{db: db}
}

// CreateWithLabels inserts the transaction row and attaches the labels,
// creating label rows on first use. Runs inside the given gorm transaction
// when tx is not nil.
func (t *Transactions) CreateWithLabels(ctx context.Context, tx *gorm.DB, transaction *models.Transaction, labels []string) error {
	if tx == nil {
		tx = t.db
	}
	db := tx.WithContext(ctx)

	if err := db.Omit("Labels", "Outputs").Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	if len(labels) == 0 {
		return nil
	}

	labelRows := make([]*models.Label, 0, len(labels))
	for _, name := range labels {
		label := &models.Label{Name: name, UserID: transaction.UserID}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(label).Error
		if err != nil {
			return fmt.Errorf("failed to create label %q: %w", name, err)
		}
		labelRows = append(labelRows, label)
	}

	if err := db.Model(transaction).Association("Labels").Append(labelRows); err != nil {
		return fmt.Errorf("failed to attach labels: %w", err)
	}

	return nil
}

// AddLabels attaches additional labels to an existing transaction, creating
// label rows on first use. Runs inside the given gorm transaction when tx is
// not nil.
func (t *Transactions) AddLabels(ctx context.Context, tx *gorm.DB, userID int, transactionID uint, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if tx == nil {
		tx = t.db
	}
	db := tx.WithContext(ctx)

	labelRows := make([]*models.Label, 0, len(labels))
	for _, name := range labels {
		label := &models.Label{Name: name, UserID: userID}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(label).Error
		if err != nil {
			return fmt.Errorf("failed to create label %q: %w", name, err)
		}
		labelRows = append(labelRows, label)
	}

	transaction := models.Transaction{}
	transaction.ID = transactionID
	if err := db.Model(&transaction).Association("Labels").Append(labelRows); err != nil {
		return fmt.Errorf("failed to attach labels: %w", err)
	}
	return nil
}

// AddSatoshis shifts the transaction's net satoshis by delta. Runs inside
// the given gorm transaction when tx is not nil.
func (t *Transactions) AddSatoshis(ctx context.Context, tx *gorm.DB, transactionID uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	if tx == nil {
		tx = t.db
	}
	err := tx.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Update("satoshis", gorm.Expr("satoshis + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("failed to adjust transaction satoshis: %w", err)
	}
	return nil
}

// FindByReference returns the user's transaction with the given reference.
func (t *Transactions) FindByReference(ctx context.Context, userID int, reference string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND reference = ?", userID, reference).
		First(&transaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("transaction with reference %q: %w", reference, werr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by reference: %w", err)
	}
	return &transaction, nil
}

// FindByTxID returns the user's transaction with the given txid, nil when absent.
func (t *Transactions) FindByTxID(ctx context.Context, userID int, txID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND tx_id = ?", userID, txID).
		First(&transaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by txid: %w", err)
	}
	return &transaction, nil
}

// UpdateProcessed stores the signed form of a created transaction.
func (t *Transactions) UpdateProcessed(ctx context.Context, transactionID uint, txID string, rawTx []byte, status wdk.TxStatus) error {
	err := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]any{
			"tx_id":  txID,
			"raw_tx": rawTx,
			"status": status.String(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update processed transaction: %w", err)
	}
	return nil
}

// UpdateStatus moves the transactions with the given ids to a new status.
func (t *Transactions) UpdateStatus(ctx context.Context, transactionIDs []uint, status wdk.TxStatus) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	err := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id IN ?", transactionIDs).
		Update("status", status.String()).Error
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

// UpdateStatusByTxID moves all rows carrying the txid to a new status,
// skipping rows already in a terminal state.
func (t *Transactions) UpdateStatusByTxID(ctx context.Context, txID string, status wdk.TxStatus) error {
	err := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("tx_id = ? AND status NOT IN ?", txID, terminalTxStatuses()).
		Update("status", status.String()).Error
	if err != nil {
		return fmt.Errorf("failed to update transaction status by txid: %w", err)
	}
	return nil
}

// LinkProven attaches the proven tx row to every transaction carrying the
// txid and completes them.
func (t *Transactions) LinkProven(ctx context.Context, txID string, provenTxID uint) error {
	err := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("tx_id = ? AND status NOT IN ?", txID, []string{
			wdk.TxStatusFailed.String(), wdk.TxStatusAborted.String(),
		}).
		Updates(map[string]any{
			"proven_tx_id": provenTxID,
			"status":       wdk.TxStatusCompleted.String(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to link proven transaction: %w", err)
	}
	return nil
}

// UnFail moves failed rows carrying the txid back to unproven so the proof
// loop reconsiders them. Only failed rows are touched.
func (t *Transactions) UnFail(ctx context.Context, txID string) error {
	err := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("tx_id = ? AND status = ?", txID, wdk.TxStatusFailed.String()).
		Update("status", wdk.TxStatusUnproven.String()).Error
	if err != nil {
		return fmt.Errorf("failed to unfail transaction: %w", err)
	}
	return nil
}

// UnlinkProven detaches an orphaned proof from every completed row carrying
// the txid and demotes them to unproven.
func (t *Transactions) UnlinkProven(ctx context.Context, txID string) error {
	err := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("tx_id = ? AND status = ?", txID, wdk.TxStatusCompleted.String()).
		Updates(map[string]any{
			"proven_tx_id": nil,
			"status":       wdk.TxStatusUnproven.String(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to unlink proven transaction: %w", err)
	}
	return nil
}

// ClearRawTxForOldCompleted drops the stored raw bytes of completed
// transactions older than the cutoff to reclaim space. The proven table keeps
// a copy for BEEF assembly.
func (t *Transactions) ClearRawTxForOldCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	result := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("status = ? AND updated_at < ? AND raw_tx IS NOT NULL AND proven_tx_id IS NOT NULL",
			wdk.TxStatusCompleted.String(), cutoff).
		Updates(map[string]any{
			"raw_tx":     nil,
			"input_beef": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear raw tx of completed transactions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FindByStatus returns up to limit transactions in any of the statuses,
// oldest first.
func (t *Transactions) FindByStatus(ctx context.Context, statuses []wdk.TxStatus, limit int) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	err := t.db.WithContext(ctx).
		Where("status IN ?", txStatusStrings(statuses)).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions by status: %w", err)
	}
	return transactions, nil
}

// FindAbandoned returns non-terminal transactions in the given statuses whose
// last update is older than the cutoff.
func (t *Transactions) FindAbandoned(ctx context.Context, statuses []wdk.TxStatus, cutoff time.Time) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	err := t.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", txStatusStrings(statuses), cutoff).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find abandoned transactions: %w", err)
	}
	return transactions, nil
}

// ListActionsQuery filters a transaction listing.
type ListActionsQuery struct {
	UserID    int
	Labels    []string
	QueryMode wdk.QueryMode
	Reference *string
	Limit     int
	Offset    int
}

// ListActions returns a page of the user's transactions filtered by labels,
// along with the unpaged total.
func (t *Transactions) ListActions(ctx context.Context, q ListActionsQuery) ([]*models.Transaction, int64, error) {
	base := t.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("transactions.user_id = ?", q.UserID)

	if q.Reference != nil {
		base = base.Where("transactions.reference = ?", *q.Reference)
	}

	if len(q.Labels) > 0 {
		base = base.
			Joins("JOIN transaction_labels tl ON tl.transaction_id = transactions.id").
			Joins("JOIN labels l ON l.name = tl.label_name AND l.user_id = tl.label_user_id").
			Where("l.name IN ? AND l.deleted_at IS NULL", q.Labels).
			Group("transactions.id")
		if q.QueryMode == wdk.QueryModeAll {
			base = base.Having("COUNT(DISTINCT l.name) = ?", len(q.Labels))
		}
	}

	var total int64
	countQuery := t.db.WithContext(ctx).Table("(?) AS counted", base.Session(&gorm.Session{}))
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var transactions []*models.Transaction
	err := base.
		Preload("Labels").
		Preload("Outputs").
		Preload("Outputs.Basket").
		Preload("Outputs.Tags").
		Order("transactions.created_at ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, total, nil
}

// LabelsForTransactionIDs returns the label names of each transaction.
func (t *Transactions) LabelsForTransactionIDs(ctx context.Context, transactionIDs []uint) (map[uint][]string, error) {
	if len(transactionIDs) == 0 {
		return map[uint][]string{}, nil
	}
	var rows []struct {
		TransactionID uint
		LabelName     string
	}
	err := t.db.WithContext(ctx).
		Table("transaction_labels").
		Select("transaction_id, label_name").
		Where("transaction_id IN ?", transactionIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load labels for transactions: %w", err)
	}
	result := make(map[uint][]string, len(rows))
	for _, row := range rows {
		result[row.TransactionID] = append(result[row.TransactionID], row.LabelName)
	}
	return result, nil
}

// PurgeFailed hard-deletes failed and aborted transactions older than the
// cutoff and returns how many rows went away.
func (t *Transactions) PurgeFailed(ctx context.Context, cutoff time.Time) (int64, error) {
	result := t.db.WithContext(ctx).
		Unscoped().
		Where("status IN ? AND updated_at < ?", []string{
			wdk.TxStatusFailed.String(), wdk.TxStatusAborted.String(),
		}, cutoff).
		Delete(&models.Transaction{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge transactions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func txStatusStrings(statuses []wdk.TxStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}

func terminalTxStatuses() []string {
	return []string{
		wdk.TxStatusCompleted.String(),
		wdk.TxStatusFailed.String(),
		wdk.TxStatusAborted.String(),
	}
}
