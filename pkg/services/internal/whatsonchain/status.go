package whatsonchain

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

type txStatusRequest struct {
	TxIDs []string `json:"txids"`
}

type txStatusItem struct {
	TxID          string  `json:"txid"`
	BlockHash     string  `json:"blockhash"`
	BlockHeight   uint32  `json:"blockheight"`
	Confirmations *int    `json:"confirmations"`
	Error         *string `json:"error"`
}

// GetStatusForTxIDs resolves the network status of a batch of txids in one
// round trip.
func (s *Service) GetStatusForTxIDs(ctx context.Context, txIDs []string) ([]wdk.TxStatusDetail, error) {
	if len(txIDs) == 0 {
		return nil, fmt.Errorf("no txIDs provided")
	}

	var response []txStatusItem
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(txStatusRequest{TxIDs: txIDs}).
		SetResult(&response).
		AddRetryCondition(httpx.RetryOnErrOr5xx).
		Post(fmt.Sprintf("%s/txs/status", s.url))
	if err != nil {
		return nil, fmt.Errorf("request to WhatsOnChain failed: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("no results returned for provided txIDs")
	}

	results := make([]wdk.TxStatusDetail, 0, len(response))
	for _, item := range response {
		results = append(results, s.mapTxStatus(item))
	}
	return results, nil
}

func (s *Service) mapTxStatus(tx txStatusItem) wdk.TxStatusDetail {
	if tx.Error != nil {
		if *tx.Error != "unknown" {
			s.logger.Warn("unexpected error for tx", slog.String("txid", tx.TxID), slog.String("error", *tx.Error))
		}
		return wdk.TxStatusDetail{TxID: tx.TxID, Status: wdk.ResultStatusForTxIDNotFound.String()}
	}

	if tx.Confirmations == nil {
		if tx.BlockHash != "" {
			s.logger.Warn("blockhash present but confirmations missing", slog.String("txid", tx.TxID), slog.String("blockhash", tx.BlockHash))
		}
		return wdk.TxStatusDetail{TxID: tx.TxID, Depth: to.Ptr(0), Status: wdk.ResultStatusForTxIDKnown.String()}
	}

	return wdk.TxStatusDetail{
		TxID:   tx.TxID,
		Depth:  to.Ptr(*tx.Confirmations),
		Status: wdk.ResultStatusForTxIDMined.String(),
	}
}
