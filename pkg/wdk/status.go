package wdk

// TxStatus is the lifecycle status of a wallet transaction row.
type TxStatus string

// Transaction statuses stored in the database.
const (
	TxStatusUnprocessed TxStatus = "unprocessed"
	TxStatusUnsigned    TxStatus = "unsigned"
	TxStatusSigned      TxStatus = "signed"
	TxStatusSending     TxStatus = "sending"
	TxStatusUnproven    TxStatus = "unproven"
	TxStatusNoSend      TxStatus = "nosend"
	TxStatusCompleted   TxStatus = "completed"
	TxStatusFailed      TxStatus = "failed"
	TxStatusAborted     TxStatus = "aborted"
)

// String returns the string representation of the TxStatus.
func (s TxStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is final; the monitor never moves a
// transaction out of a terminal state.
func (s TxStatus) Terminal() bool {
	switch s {
	case TxStatusCompleted, TxStatusFailed, TxStatusAborted:
		return true
	default:
		return false
	}
}

// ProvenTxReqStatus tracks the progress of obtaining a merkle proof for a txid.
type ProvenTxReqStatus string

// Proven transaction request statuses.
const (
	ProvenTxStatusUnknown     ProvenTxReqStatus = "unknown"
	ProvenTxStatusCallback    ProvenTxReqStatus = "callback"
	ProvenTxStatusUnmined     ProvenTxReqStatus = "unmined"
	ProvenTxStatusSending     ProvenTxReqStatus = "sending"
	ProvenTxStatusUnconfirmed ProvenTxReqStatus = "unconfirmed"
	ProvenTxStatusNoSend      ProvenTxReqStatus = "nosend"
	ProvenTxStatusNotifying   ProvenTxReqStatus = "notifying"
	ProvenTxStatusCompleted   ProvenTxReqStatus = "completed"
	ProvenTxStatusInvalid     ProvenTxReqStatus = "invalid"
	ProvenTxStatusAborted     ProvenTxReqStatus = "aborted"
)

// Terminal reports whether no further monitor processing applies.
func (s ProvenTxReqStatus) Terminal() bool {
	switch s {
	case ProvenTxStatusCompleted, ProvenTxStatusInvalid, ProvenTxStatusAborted:
		return true
	default:
		return false
	}
}

// NeedsProof reports whether the CheckForProofs task should poll this request.
func (s ProvenTxReqStatus) NeedsProof() bool {
	switch s {
	case ProvenTxStatusCallback, ProvenTxStatusUnmined, ProvenTxStatusSending,
		ProvenTxStatusUnknown, ProvenTxStatusUnconfirmed:
		return true
	default:
		return false
	}
}

// ProvenTxReqNeedsProofStatuses lists the statuses the proof task polls.
var ProvenTxReqNeedsProofStatuses = []ProvenTxReqStatus{
	ProvenTxStatusCallback,
	ProvenTxStatusUnmined,
	ProvenTxStatusSending,
	ProvenTxStatusUnknown,
	ProvenTxStatusUnconfirmed,
}
