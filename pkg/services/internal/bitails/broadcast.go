package bitails

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// Bitails broadcast error codes, mirroring the node's reject codes.
const (
	errorCodeAlreadyInMempool = "-27"
	errorCodeDoubleSpend      = "-26"
	errorCodeMissingInputs    = "-25"
)

type broadcastRequest struct {
	Raws []string `json:"raws"`
}

type broadcastResponse struct {
	TxID  string          `json:"txid"`
	Error *broadcastError `json:"error,omitempty"`
}

type broadcastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts error.code as either a number or a string.
func (e *broadcastError) UnmarshalJSON(data []byte) error {
	var alias struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("unmarshal broadcastError: %w", err)
	}
	e.Message = alias.Message
	switch v := alias.Code.(type) {
	case float64:
		e.Code = strconv.FormatInt(int64(v), 10)
	case string:
		e.Code = v
	}
	return nil
}

// PostBEEF broadcasts each requested transaction of the BEEF through the
// multi-broadcast endpoint.
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
	for i := range txIDs {
		results = append(results, s.broadcast(ctx, rawTxs[i]))
	}

	return &wdk.PostedBEEF{TxIDResults: results}, nil
}

func (s *Service) broadcast(ctx context.Context, rawTx []byte) wdk.PostedTxID {
	txID := txutils.TransactionIDFromRawTx(rawTx)

	responses, err := s.sendBroadcastRequest(ctx, hex.EncodeToString(rawTx))
	if err != nil {
		return errorPostedTxID(txID, fmt.Errorf("broadcast failed for txid %s: %w", txID, err))
	}
	if len(responses) != 1 {
		return errorPostedTxID(txID, fmt.Errorf("%s returned %d elements, expected 1", ServiceName, len(responses)))
	}

	response := responses[0]
	if response.TxID != "" && response.TxID != txID {
		return errorPostedTxID(txID, fmt.Errorf("returned txid %s does not match expected txid %s", response.TxID, txID))
	}

	result := wdk.PostedTxID{TxID: txID}
	classifyResponseError(response, &result)

	if result.Result == wdk.PostedTxIDResultSuccess || result.AlreadyKnown {
		if info, infoErr := s.getTxStatus(ctx, txID); infoErr == nil && info != nil {
			result.BlockHash = info.BlockHash
			result.BlockHeight = info.BlockHeight
		}
	}

	return result
}

func (s *Service) sendBroadcastRequest(ctx context.Context, rawHex string) ([]broadcastResponse, error) {
	var responses []broadcastResponse
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(broadcastRequest{Raws: []string{rawHex}}).
		SetResult(&responses).
		Post(fmt.Sprintf("%s/tx/broadcast/multi", s.url))
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceName, err)
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("%s returned HTTP %d: %s", ServiceName, res.StatusCode(), res.String())
	}
	return responses, nil
}

func classifyResponseError(response broadcastResponse, result *wdk.PostedTxID) {
	if response.Error == nil {
		result.Result = wdk.PostedTxIDResultSuccess
		return
	}

	msg := response.Error.Message
	result.Data = fmt.Sprintf("code=%s, msg=%s", response.Error.Code, msg)

	switch response.Error.Code {
	case errorCodeAlreadyInMempool:
		result.Result = wdk.PostedTxIDResultAlreadyKnown
		result.AlreadyKnown = true
	case errorCodeDoubleSpend:
		result.Result = wdk.PostedTxIDResultDoubleSpend
		result.DoubleSpend = true
	case errorCodeMissingInputs:
		result.Result = wdk.PostedTxIDResultMissingInputs
	default:
		result.Result = wdk.PostedTxIDResultError
		result.Error = fmt.Errorf("broadcast error code %s: %s", response.Error.Code, msg)
	}
}

func errorPostedTxID(txID string, err error) wdk.PostedTxID {
	return wdk.PostedTxID{
		TxID:   txID,
		Result: wdk.PostedTxIDResultError,
		Error:  err,
	}
}
