package whatsonchain

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

type scriptUnspentItem struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Value  int64  `json:"value"`
	Height uint32 `json:"height"`
}

type scriptUnspentResponse struct {
	Result []scriptUnspentItem `json:"result"`
	Error  string              `json:"error"`
}

// GetUTXOStatus reports whether the script hash has unspent outputs. When an
// outpoint is given, IsUTXO is true only if that exact outpoint is among them.
func (s *Service) GetUTXOStatus(ctx context.Context, scriptHash string, outpoint string) (*wdk.UTXOStatusResult, error) {
	if err := validateScriptHash(scriptHash); err != nil {
		return nil, fmt.Errorf("invalid scripthash: %w", err)
	}

	var response scriptUnspentResponse
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get(fmt.Sprintf("%s/script/%s/unspent/all", s.url, scriptHash))
	if err != nil {
		return nil, fmt.Errorf("failed to query WhatsOnChain for UTXO status: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if response.Error != "" {
		return nil, fmt.Errorf("WhatsOnChain API error: %s", response.Error)
	}

	result := &wdk.UTXOStatusResult{
		Name:    ServiceName,
		Details: make([]wdk.UTXOStatusDetail, 0, len(response.Result)),
	}
	for _, item := range response.Result {
		result.Details = append(result.Details, wdk.UTXOStatusDetail{
			TxID:     item.TxHash,
			Vout:     item.TxPos,
			Satoshis: item.Value,
			Height:   item.Height,
		})
	}

	if outpoint != "" {
		result.IsUTXO, err = containsOutpoint(result.Details, outpoint)
		if err != nil {
			return nil, err
		}
	} else {
		result.IsUTXO = len(result.Details) > 0
	}

	return result, nil
}

type scriptHistoryResponse struct {
	Result []wdk.ScriptHistoryItem `json:"result"`
	Error  string                  `json:"error"`
}

// GetScriptHistory returns the confirmed and unconfirmed transactions that
// touch the script hash.
func (s *Service) GetScriptHistory(ctx context.Context, scriptHash string) (*wdk.ScriptHistoryResult, error) {
	if err := validateScriptHash(scriptHash); err != nil {
		return nil, fmt.Errorf("invalid scripthash: %w", err)
	}

	confirmed, err := s.scriptHistoryPage(ctx, scriptHash, "confirmed")
	if err != nil {
		return nil, err
	}
	unconfirmed, err := s.scriptHistoryPage(ctx, scriptHash, "unconfirmed")
	if err != nil {
		return nil, err
	}

	return &wdk.ScriptHistoryResult{
		Name:        ServiceName,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
	}, nil
}

func (s *Service) scriptHistoryPage(ctx context.Context, scriptHash, kind string) ([]wdk.ScriptHistoryItem, error) {
	var response scriptHistoryResponse
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get(fmt.Sprintf("%s/script/%s/%s/history", s.url, scriptHash, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s script history: %w", kind, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d getting %s script history", res.StatusCode(), kind)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("WhatsOnChain API error: %s", response.Error)
	}
	return response.Result, nil
}

func containsOutpoint(details []wdk.UTXOStatusDetail, outpoint string) (bool, error) {
	txID, vout, err := primitives.OutpointString(outpoint).Get()
	if err != nil {
		return false, fmt.Errorf("invalid outpoint %q: %w", outpoint, err)
	}
	for _, d := range details {
		if d.TxID == txID && d.Vout == vout {
			return true, nil
		}
	}
	return false, nil
}

func validateScriptHash(scriptHash string) error {
	if scriptHash == "" {
		return fmt.Errorf("scripthash cannot be empty")
	}
	if len(scriptHash) != 64 {
		return fmt.Errorf("invalid scripthash length: expected 64 hex characters")
	}
	if _, err := hex.DecodeString(scriptHash); err != nil {
		return fmt.Errorf("invalid scripthash format: %w", err)
	}
	return nil
}
