// Package werr defines the structured error kinds surfaced by the wallet
// toolbox. Each kind is a sentinel that concrete errors wrap, so callers can
// classify failures with errors.Is / errors.As while the message chain keeps
// the full context.
package werr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrInvalidParameter marks schema/range/format failures detected before
	// any side effect.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotFound marks lookups of rows or references that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthentication marks operations requiring an authenticated user.
	ErrAuthentication = errors.New("not authenticated")

	// ErrRuntime marks a missing or misconfigured collaborator.
	ErrRuntime = errors.New("runtime configuration error")

	// ErrTimeout marks expired waits (authentication polling, privileged key renewal).
	ErrTimeout = errors.New("timeout")

	// ErrDecryption marks snapshot or pivot decryption failures.
	ErrDecryption = errors.New("decryption failed")

	// ErrTransactionBroadcast marks network or node refusal of a well-formed transaction.
	ErrTransactionBroadcast = errors.New("transaction broadcast failed")

	// ErrTransactionSize marks internal size-accounting inconsistencies.
	ErrTransactionSize = errors.New("transaction size accounting error")

	// ErrPermissionDenied marks a request refused by the permissions manager.
	ErrPermissionDenied = errors.New("permission denied")
)

// InvalidParameter returns an ErrInvalidParameter naming the offending field
// and the constraint it must satisfy.
func InvalidParameter(field, mustBe string) error {
	return fmt.Errorf("%w: %s must be %s", ErrInvalidParameter, field, mustBe)
}

// InvalidParameterf is InvalidParameter with a formatted constraint.
func InvalidParameterf(field, format string, args ...any) error {
	return InvalidParameter(field, fmt.Sprintf(format, args...))
}

// InsufficientFundsError is raised by change selection when the spendable
// change in the default basket cannot cover a transaction.
type InsufficientFundsError struct {
	TotalSatoshisNeeded int64
	MoreSatoshisNeeded  int64
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %d more satoshis are needed for a total of %d",
		e.MoreSatoshisNeeded, e.TotalSatoshisNeeded)
}

// NewInsufficientFunds builds an InsufficientFundsError from the funding gap.
func NewInsufficientFunds(totalNeeded, moreNeeded int64) error {
	return &InsufficientFundsError{
		TotalSatoshisNeeded: totalNeeded,
		MoreSatoshisNeeded:  moreNeeded,
	}
}

// ReviewActionResultStatus classifies a per-txid broadcast outcome.
type ReviewActionResultStatus string

// Per-txid broadcast outcomes.
const (
	ReviewStatusSuccess      ReviewActionResultStatus = "success"
	ReviewStatusDoubleSpend  ReviewActionResultStatus = "doubleSpend"
	ReviewStatusServiceError ReviewActionResultStatus = "serviceError"
	ReviewStatusInvalidTx    ReviewActionResultStatus = "invalidTx"
)

// ReviewActionResult is the per-txid outcome carried by a ReviewActionsError.
type ReviewActionResult struct {
	TxID         string                   `json:"txid"`
	Status       ReviewActionResultStatus `json:"status"`
	CompetingTxs []string                 `json:"competingTxs,omitempty"`

	// CompetingBeef bundles the competing transactions when a double spend
	// was detected.
	CompetingBeef []byte `json:"competingBeef,omitempty"`
}

// SendWithResult reports the dispatch status of one txid in a batch.
type SendWithResult struct {
	TxID   string `json:"txid"`
	Status string `json:"status"`
}

// ReviewActionsError is raised on the undelayed broadcast path when at least
// one transaction was not accepted by the network. It carries everything the
// caller needs to recover.
type ReviewActionsError struct {
	ReviewActionResults []ReviewActionResult
	SendWithResults     []SendWithResult
	TxID                string
	Tx                  []byte
	NoSendChange        []string
}

// Error implements the error interface.
func (e *ReviewActionsError) Error() string {
	return fmt.Sprintf("review actions: %d transaction(s) were not accepted by the network", len(e.ReviewActionResults))
}
