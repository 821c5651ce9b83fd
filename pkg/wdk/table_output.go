package wdk

import (
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// TableOutput represents a wallet output row.
type TableOutput struct {
	CreatedAt          time.Time                    `json:"created_at"`
	UpdatedAt          time.Time                    `json:"updated_at"`
	OutputID           uint                         `json:"outputId"`
	UserID             int                          `json:"userId"`
	TransactionID      uint                         `json:"transactionId"`
	BasketID           *uint                        `json:"basketId,omitempty"`
	SpentBy            *uint                        `json:"spentBy,omitempty"`
	Spendable          bool                         `json:"spendable"`
	Spent              bool                         `json:"spent"`
	Change             bool                         `json:"change"`
	OutputDescription  string                       `json:"outputDescription"`
	Vout               uint32                       `json:"vout"`
	Satoshis           int64                        `json:"satoshis"`
	ProvidedBy         string                       `json:"providedBy"`
	Purpose            string                       `json:"purpose"`
	Type               string                       `json:"type"`
	TxID               *string                      `json:"txid,omitempty"`
	SenderIdentityKey  *string                      `json:"senderIdentityKey,omitempty"`
	DerivationPrefix   *string                      `json:"derivationPrefix,omitempty"`
	DerivationSuffix   *string                      `json:"derivationSuffix,omitempty"`
	CustomInstructions *string                      `json:"customInstructions,omitempty"`
	SequenceNumber     *uint32                      `json:"sequenceNumber,omitempty"`
	SpendingDescription *string                     `json:"spendingDescription,omitempty"`
	ScriptLength       *uint32                      `json:"scriptLength,omitempty"`
	ScriptOffset       *uint32                      `json:"scriptOffset,omitempty"`
	LockingScript      primitives.ExplicitByteArray `json:"lockingScript,omitempty"`

	Tags   []string `json:"tags,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Outpoint returns the "<txid>.<vout>" identifier of this output.
func (o *TableOutput) Outpoint() primitives.OutpointString {
	txID := ""
	if o.TxID != nil {
		txID = *o.TxID
	}
	return primitives.NewOutpointString(txID, o.Vout)
}

// TableOutputBasket is a named bucket of outputs controlling change policy.
type TableOutputBasket struct {
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
	BasketID                uint      `json:"basketId"`
	UserID                  int       `json:"userId"`
	Name                    string    `json:"name"`
	NumberOfDesiredUTXOs    int       `json:"numberOfDesiredUTXOs"`
	MinimumDesiredUTXOValue uint64    `json:"minimumDesiredUTXOValue"`
	IsDeleted               bool      `json:"isDeleted"`
}

// TableOutputTag is a per-user output tag.
type TableOutputTag struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	OutputTagID uint      `json:"outputTagId"`
	UserID      int       `json:"userId"`
	Tag         string    `json:"tag"`
	IsDeleted   bool      `json:"isDeleted"`
}

// DefaultBasketConfiguration returns the change policy applied to the
// default basket of a newly created user.
func DefaultBasketConfiguration() TableOutputBasket {
	return TableOutputBasket{
		Name:                    BasketNameForChange,
		NumberOfDesiredUTXOs:    32,
		MinimumDesiredUTXOValue: 1000,
	}
}
