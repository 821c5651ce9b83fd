package arc

import "time"

// TXStatus is the lifecycle status ARC reports for a transaction.
type TXStatus string

// ARC transaction statuses.
const (
	Queued               TXStatus = "QUEUED"
	Received             TXStatus = "RECEIVED"
	Stored               TXStatus = "STORED"
	AnnouncedToNetwork   TXStatus = "ANNOUNCED_TO_NETWORK"
	RequestedByNetwork   TXStatus = "REQUESTED_BY_NETWORK"
	SentToNetwork        TXStatus = "SENT_TO_NETWORK"
	AcceptedByNetwork    TXStatus = "ACCEPTED_BY_NETWORK"
	SeenOnNetwork        TXStatus = "SEEN_ON_NETWORK"
	DoubleSpendAttempted TXStatus = "DOUBLE_SPEND_ATTEMPTED"
	Rejected             TXStatus = "REJECTED"
	Mined                TXStatus = "MINED"
)

// TXInfo is the transaction information ARC returns from both the broadcast
// and the query endpoints.
type TXInfo struct {
	BlockHash    string    `json:"blockHash"`
	BlockHeight  uint32    `json:"blockHeight"`
	CompetingTxs []string  `json:"competingTxs"`
	ExtraInfo    string    `json:"extraInfo"`
	MerklePath   string    `json:"merklePath"`
	Timestamp    time.Time `json:"timestamp"`
	TXStatus     TXStatus  `json:"txStatus"`
	TxID         string    `json:"txid"`
}
