package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outputs is the repository of wallet outputs.
type Outputs struct {
	db *gorm.DB
}

// NewOutputs creates an outputs repository.
func NewOutputs(db *gorm.DB) *Outputs {
	return &Outputs{db: db}
}

// CreateWithTags inserts the output and attaches its tags, creating tag rows
// on first use. Runs inside the given gorm transaction when tx is not nil.
func (o *Outputs) CreateWithTags(ctx context.Context, tx *gorm.DB, output *models.Output, tags []string) error {
	if tx == nil {
		tx = o.db
	}
	db := tx.WithContext(ctx)

	if err := db.Omit("Tags", "Basket").Create(output).Error; err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	if len(tags) == 0 {
		return nil
	}

	tagRows := make([]*models.Tag, 0, len(tags))
	for _, name := range tags {
		tag := &models.Tag{Name: name, UserID: output.UserID}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(tag).Error
		if err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		tagRows = append(tagRows, tag)
	}

	if err := db.Model(output).Association("Tags").Append(tagRows); err != nil {
		return fmt.Errorf("failed to attach tags: %w", err)
	}

	return nil
}

// Save writes the full output row, replacing an existing row when its ID is
// set. Runs inside the given gorm transaction when tx is not nil.
func (o *Outputs) Save(ctx context.Context, tx *gorm.DB, output *models.Output) error {
	if tx == nil {
		tx = o.db
	}
	err := tx.WithContext(ctx).
		Omit("Tags", "Basket").
		Save(output).Error
	if err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	return nil
}

// FindByOutpoint returns the user's output with the given txid and vout,
// nil when absent.
func (o *Outputs) FindByOutpoint(ctx context.Context, userID int, txID string, vout uint32) (*models.Output, error) {
	var output models.Output
	err := o.db.WithContext(ctx).
		Preload("Basket").
		Preload("Tags").
		Where("user_id = ? AND tx_id = ? AND vout = ?", userID, txID, vout).
		First(&output).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find output by outpoint: %w", err)
	}
	return &output, nil
}

// FindByTransactionID returns all outputs of the transaction row.
func (o *Outputs) FindByTransactionID(ctx context.Context, transactionID uint) ([]*models.Output, error) {
	var outputs []*models.Output
	err := o.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("vout ASC").
		Find(&outputs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find outputs by transaction: %w", err)
	}
	return outputs, nil
}

// ReserveOutputs marks the outputs unspendable and records the reserving
// transaction so concurrent funders cannot double-allocate them. Fails when
// any of them was grabbed first. Runs inside the given gorm transaction when
// tx is not nil.
func (o *Outputs) ReserveOutputs(ctx context.Context, tx *gorm.DB, outputIDs []uint, spentBy uint) error {
	if len(outputIDs) == 0 {
		return nil
	}
	if tx == nil {
		tx = o.db
	}
	result := tx.WithContext(ctx).
		Model(&models.Output{}).
		Where("id IN ? AND spendable = ?", outputIDs, true).
		Updates(map[string]any{
			"spendable": false,
			"spent_by":  spentBy,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reserve outputs: %w", result.Error)
	}
	if result.RowsAffected != int64(len(outputIDs)) {
		return fmt.Errorf("only %d of %d outputs could be reserved: %w",
			result.RowsAffected, len(outputIDs), werr.ErrInvalidParameter)
	}
	return nil
}

// MarkSpentByReserver finalizes the spend of every output reserved by the
// transaction.
func (o *Outputs) MarkSpentByReserver(ctx context.Context, tx *gorm.DB, spentBy uint, spendingDescription *string) error {
	if tx == nil {
		tx = o.db
	}
	updates := map[string]any{
		"spendable": false,
		"spent":     true,
	}
	if spendingDescription != nil {
		updates["spending_description"] = *spendingDescription
	}
	err := tx.WithContext(ctx).
		Model(&models.Output{}).
		Where("spent_by = ?", spentBy).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to mark reserved outputs spent: %w", err)
	}
	return nil
}

// MarkSpent finalizes the spend of reserved outputs by the given transaction.
func (o *Outputs) MarkSpent(ctx context.Context, tx *gorm.DB, outputIDs []uint, spentBy uint, spendingDescription *string) error {
	if len(outputIDs) == 0 {
		return nil
	}
	if tx == nil {
		tx = o.db
	}
	updates := map[string]any{
		"spendable": false,
		"spent":     true,
		"spent_by":  spentBy,
	}
	if spendingDescription != nil {
		updates["spending_description"] = *spendingDescription
	}
	err := tx.WithContext(ctx).
		Model(&models.Output{}).
		Where("id IN ?", outputIDs).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to mark outputs spent: %w", err)
	}
	return nil
}

// ReleaseReserved returns reserved outputs of an aborted or failed
// transaction to the spendable pool. Runs inside the given gorm transaction
// when tx is not nil.
func (o *Outputs) ReleaseReserved(ctx context.Context, tx *gorm.DB, spentBy uint) error {
	if tx == nil {
		tx = o.db
	}
	err := tx.WithContext(ctx).
		Model(&models.Output{}).
		Where("spent_by = ?", spentBy).
		Updates(map[string]any{
			"spendable": true,
			"spent":     false,
			"spent_by":  nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release reserved outputs: %w", err)
	}
	return nil
}

// DisableByTransactionID makes every output created by the transaction
// unspendable, for aborted or failed actions. Runs inside the given gorm
// transaction when tx is not nil.
func (o *Outputs) DisableByTransactionID(ctx context.Context, tx *gorm.DB, transactionID uint) error {
	if tx == nil {
		tx = o.db
	}
	err := tx.WithContext(ctx).
		Model(&models.Output{}).
		Where("transaction_id = ?", transactionID).
		Update("spendable", false).Error
	if err != nil {
		return fmt.Errorf("failed to disable outputs of transaction: %w", err)
	}
	return nil
}

// SetSpendableByTxID flips the spendable flag of every unspent output of the
// transaction that sits in a basket.
func (o *Outputs) SetSpendableByTxID(ctx context.Context, txID string, spendable bool) error {
	err := o.db.WithContext(ctx).
		Model(&models.Output{}).
		Where("tx_id = ? AND spent = ? AND basket_id IS NOT NULL", txID, false).
		Update("spendable", spendable).Error
	if err != nil {
		return fmt.Errorf("failed to update spendable by txid: %w", err)
	}
	return nil
}

// UpdateProcessed records the txid of a now-signed output and, when its
// locking script was too long to store inline, the script's window into the
// raw transaction. Runs inside the given gorm transaction when tx is not nil.
func (o *Outputs) UpdateProcessed(ctx context.Context, tx *gorm.DB, outputID uint, txID string, scriptOffset, scriptLength *uint32, spendable bool) error {
	if tx == nil {
		tx = o.db
	}
	updates := map[string]any{
		"tx_id":     txID,
		"spendable": spendable,
	}
	if scriptOffset != nil {
		updates["script_offset"] = *scriptOffset
	}
	if scriptLength != nil {
		updates["script_length"] = *scriptLength
	}
	err := tx.WithContext(ctx).
		Model(&models.Output{}).
		Where("id = ?", outputID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update processed output: %w", err)
	}
	return nil
}

// SetSpendable flips the spendable flag of a single output.
func (o *Outputs) SetSpendable(ctx context.Context, outputID uint, spendable bool) error {
	err := o.db.WithContext(ctx).
		Model(&models.Output{}).
		Where("id = ?", outputID).
		Update("spendable", spendable).Error
	if err != nil {
		return fmt.Errorf("failed to update output spendable flag: %w", err)
	}
	return nil
}

// RemoveFromBasket detaches the output from its basket and makes it
// unspendable, leaving the row itself intact.
func (o *Outputs) RemoveFromBasket(ctx context.Context, outputID uint) error {
	err := o.db.WithContext(ctx).
		Model(&models.Output{}).
		Where("id = ?", outputID).
		Updates(map[string]any{
			"basket_id": nil,
			"spendable": false,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to remove output from basket: %w", err)
	}
	return nil
}

// SumSpendableChange returns the total satoshis of spendable change in the
// basket.
func (o *Outputs) SumSpendableChange(ctx context.Context, userID int, basketID uint) (int64, error) {
	var total *int64
	err := o.db.WithContext(ctx).
		Model(&models.Output{}).
		Select("SUM(satoshis)").
		Where("user_id = ? AND basket_id = ? AND spendable = ? AND spent = ? AND is_change = ?",
			userID, basketID, true, false, true).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum spendable change: %w", err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// FindSpendableChange returns every spendable change output of the basket.
func (o *Outputs) FindSpendableChange(ctx context.Context, userID int, basketID uint) ([]*models.Output, error) {
	var outputs []*models.Output
	err := o.db.WithContext(ctx).
		Where("user_id = ? AND basket_id = ? AND spendable = ? AND spent = ? AND is_change = ?",
			userID, basketID, true, false, true).
		Order("created_at ASC").
		Find(&outputs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find spendable change: %w", err)
	}
	return outputs, nil
}

// FindOutputsQuery filters a direct output lookup; set fields are AND-ed.
type FindOutputsQuery struct {
	UserID        int
	OutputID      *uint
	TransactionID *uint
	TxID          *string
	Vout          *uint32
	BasketID      *uint
	Change        *bool
	Spendable     *bool
	Spent         *bool
	Limit         int
	Offset        int
}

// FindOutputs returns the outputs matching the query, oldest first.
func (o *Outputs) FindOutputs(ctx context.Context, q FindOutputsQuery) ([]*models.Output, error) {
	query := o.db.WithContext(ctx).
		Preload("Basket").
		Preload("Tags").
		Where("user_id = ?", q.UserID)

	if q.OutputID != nil {
		query = query.Where("id = ?", *q.OutputID)
	}
	if q.TransactionID != nil {
		query = query.Where("transaction_id = ?", *q.TransactionID)
	}
	if q.TxID != nil {
		query = query.Where("tx_id = ?", *q.TxID)
	}
	if q.Vout != nil {
		query = query.Where("vout = ?", *q.Vout)
	}
	if q.BasketID != nil {
		query = query.Where("basket_id = ?", *q.BasketID)
	}
	if q.Change != nil {
		query = query.Where("is_change = ?", *q.Change)
	}
	if q.Spendable != nil {
		query = query.Where("spendable = ?", *q.Spendable)
	}
	if q.Spent != nil {
		query = query.Where("spent = ?", *q.Spent)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var outputs []*models.Output
	if err := query.Order("id ASC").Find(&outputs).Error; err != nil {
		return nil, fmt.Errorf("failed to find outputs: %w", err)
	}
	return outputs, nil
}

// ListOutputsQuery filters an output listing.
type ListOutputsQuery struct {
	UserID       int
	BasketID     *uint
	Tags         []string
	QueryMode    wdk.QueryMode
	IncludeSpent bool
	// Change restricts the listing to change or non-change outputs.
	Change *bool
	// Spent restricts the listing to spent or unspent outputs; it overrides
	// IncludeSpent.
	Spent  *bool
	Limit  int
	Offset int
}

// ListOutputs returns a page of the user's outputs along with the unpaged
// total.
func (o *Outputs) ListOutputs(ctx context.Context, q ListOutputsQuery) ([]*models.Output, int64, error) {
	base := o.db.WithContext(ctx).
		Model(&models.Output{}).
		Where("outputs.user_id = ?", q.UserID)

	if q.BasketID != nil {
		base = base.Where("outputs.basket_id = ?", *q.BasketID)
	}
	if q.Spent != nil {
		base = base.Where("outputs.spent = ?", *q.Spent)
	} else if !q.IncludeSpent {
		base = base.Where("outputs.spent = ?", false)
	}
	if q.Change != nil {
		base = base.Where("outputs.is_change = ?", *q.Change)
	}

	if len(q.Tags) > 0 {
		base = base.
			Joins("JOIN output_tags ot ON ot.output_id = outputs.id").
			Joins("JOIN tags tg ON tg.name = ot.tag_name AND tg.user_id = ot.tag_user_id").
			Where("tg.name IN ? AND tg.deleted_at IS NULL", q.Tags).
			Group("outputs.id")
		if q.QueryMode == wdk.QueryModeAll {
			base = base.Having("COUNT(DISTINCT tg.name) = ?", len(q.Tags))
		}
	}

	var total int64
	countQuery := o.db.WithContext(ctx).Table("(?) AS counted", base.Session(&gorm.Session{}))
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count outputs: %w", err)
	}

	var outputs []*models.Output
	err := base.
		Preload("Basket").
		Preload("Tags").
		Order("outputs.id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&outputs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list outputs: %w", err)
	}

	return outputs, total, nil
}
