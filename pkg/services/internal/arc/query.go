package arc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

func (s *Service) queryTransaction(ctx context.Context, txID string) (*TXInfo, error) {
	result := &TXInfo{}
	arcErr := &APIError{}

	response, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(arcErr).
		SetPathParam("txID", txID).
		Get(s.queryTxURL)
	if err != nil {
		var netError net.Error
		if errors.As(err, &netError) {
			return nil, fmt.Errorf("arc is unreachable: %w", netError)
		}
		return nil, fmt.Errorf("failed to send request to arc: %w", err)
	}

	switch response.StatusCode() {
	case http.StatusOK:
		return result, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("arc returned unauthorized: %w", arcErr)
	case http.StatusNotFound:
		if !arcErr.IsEmpty() {
			// by convention nil means the transaction is unknown to arc
			return nil, nil
		}
		return nil, fmt.Errorf("arc %s is unreachable", s.queryTxURL)
	case http.StatusConflict:
		return nil, fmt.Errorf("arc responded with error: %w", arcErr)
	default:
		return nil, fmt.Errorf("arc returned unexpected http status [%d %s]: %w", response.StatusCode(), response.Status(), arcErr)
	}
}

// GetMerklePath resolves the merkle path of a mined transaction through the
// ARC query endpoint.
func (s *Service) GetMerklePath(ctx context.Context, txID string) (*wdk.MerklePathResult, error) {
	info, err := s.queryTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("arc query tx %s failed: %w", txID, err)
	}
	if info == nil {
		return nil, fmt.Errorf("tx %s not found", txID)
	}
	if info.TxID != txID {
		return nil, fmt.Errorf("got response for tx %s while querying for %s", info.TxID, txID)
	}

	if info.MerklePath == "" {
		// known but not mined yet
		return &wdk.MerklePathResult{Name: ServiceName}, nil
	}

	merklePath, err := transaction.NewMerklePathFromHex(info.MerklePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse merkle path %s: %w", info.MerklePath, err)
	}
	if merklePath.BlockHeight != info.BlockHeight {
		return nil, fmt.Errorf("merkle path block height %d does not match tx block height %d", merklePath.BlockHeight, info.BlockHeight)
	}

	merkleRoot, err := merklePath.ComputeRootHex(&txID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute merkle root for tx %s: %w", txID, err)
	}

	return &wdk.MerklePathResult{
		Name:       ServiceName,
		MerklePath: merklePath,
		BlockHeader: &wdk.MerklePathBlockHeader{
			Height:     info.BlockHeight,
			Hash:       info.BlockHash,
			MerkleRoot: merkleRoot,
		},
	}, nil
}
