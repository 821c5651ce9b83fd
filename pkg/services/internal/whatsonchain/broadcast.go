package whatsonchain

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

type broadcastStatus int

const (
	broadcastError broadcastStatus = iota
	broadcastSuccess
	broadcastAlreadyKnown
	broadcastDoubleSpend
	broadcastMissingInputs
)

type broadcastRequest struct {
	TxHex string `json:"txhex"`
}

// PostBEEF broadcasts each requested transaction of the BEEF individually
// through the raw transaction endpoint.
func (s *Service) PostBEEF(ctx context.Context, beef *transaction.Beef, txIDs []string) (*wdk.PostedBEEF, error) {
	if beef == nil {
		return nil, fmt.Errorf("beef is required to post transactions")
	}
	if len(txIDs) == 0 {
		return nil, fmt.Errorf("no txIDs provided")
	}

	rawTxs, err := txutils.ExtractRawTransactions(beef, txIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to extract raw transactions: %w", err)
	}

	results := make([]wdk.PostedTxID, 0, len(txIDs))
	for i, txID := range txIDs {
		results = append(results, s.broadcastSingleTx(ctx, txID, rawTxs[i]))
	}

	return &wdk.PostedBEEF{TxIDResults: results}, nil
}

func (s *Service) broadcastSingleTx(ctx context.Context, txID string, rawTx []byte) wdk.PostedTxID {
	status, err := s.broadcast(ctx, rawTx)
	if err != nil {
		return wdk.PostedTxID{
			TxID:   txID,
			Result: wdk.PostedTxIDResultError,
			Error:  fmt.Errorf("broadcast failed for txid %s: %w", txID, err),
		}
	}

	result := wdk.PostedTxID{TxID: txID}
	switch status {
	case broadcastSuccess:
		result.Result = wdk.PostedTxIDResultSuccess
	case broadcastAlreadyKnown:
		result.Result = wdk.PostedTxIDResultAlreadyKnown
		result.AlreadyKnown = true
	case broadcastDoubleSpend:
		result.Result = wdk.PostedTxIDResultDoubleSpend
		result.DoubleSpend = true
	case broadcastMissingInputs:
		result.Result = wdk.PostedTxIDResultMissingInputs
	default:
		result.Result = wdk.PostedTxIDResultError
		result.Error = fmt.Errorf("unknown broadcast status %d", status)
	}

	if result.Result == wdk.PostedTxIDResultSuccess || result.AlreadyKnown {
		if info, infoErr := s.fetchTxInfo(ctx, txID); infoErr == nil && info != nil {
			result.BlockHash = info.BlockHash
			result.BlockHeight = info.BlockHeight
		}
	}

	return result
}

func (s *Service) broadcast(ctx context.Context, rawTx []byte) (broadcastStatus, error) {
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(broadcastRequest{TxHex: hex.EncodeToString(rawTx)}).
		Post(fmt.Sprintf("%s/tx/raw", s.url))
	if err != nil {
		return broadcastError, fmt.Errorf("failed to send request to WhatsOnChain: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		responseText := res.String()
		switch {
		case containsFold(responseText, "already in mempool", "already in the mempool", "txn-already-known"):
			return broadcastAlreadyKnown, nil
		case containsFold(responseText, "txn-mempool-conflict"):
			return broadcastDoubleSpend, nil
		case containsFold(responseText, "missing inputs"):
			return broadcastMissingInputs, nil
		default:
			return broadcastError, fmt.Errorf("WhatsOnChain returned unexpected error %d: %s", res.StatusCode(), responseText)
		}
	}

	return broadcastSuccess, nil
}

func (s *Service) fetchTxInfo(ctx context.Context, txID string) (*txStatusItem, error) {
	var response []txStatusItem
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(txStatusRequest{TxIDs: []string{txID}}).
		SetResult(&response).
		Post(fmt.Sprintf("%s/txs/status", s.url))
	if err != nil {
		return nil, fmt.Errorf("failed to call WhatsOnChain: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("no data returned for txid %s", txID)
	}
	return &response[0], nil
}

func containsFold(subject string, needles ...string) bool {
	subject = strings.ToLower(subject)
	for _, needle := range needles {
		if strings.Contains(subject, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
