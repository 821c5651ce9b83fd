package whatsonchain

import (
	"context"
	"fmt"
	"net/http"

	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

type tscProof struct {
	Index  int      `json:"index"`
	TxOrID string   `json:"txOrId"`
	Target string   `json:"target"`
	Nodes  []string `json:"nodes"`
}

// GetMerklePath fetches the TSC proof for a mined transaction and converts it
// to a merkle path. The computed root is cross-checked against the containing
// block header before the path is returned.
func (s *Service) GetMerklePath(ctx context.Context, txID string) (*wdk.MerklePathResult, error) {
	proof, err := s.getTscProof(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to get TSC proof: %w", err)
	}
	if proof == nil {
		// not mined yet
		return &wdk.MerklePathResult{Name: ServiceName}, nil
	}

	header, err := s.fetchMerkleHeader(ctx, proof.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block header: %w", err)
	}

	merklePath, err := txutils.MerklePathFromTscProof(txID, proof.Index, proof.Nodes, header.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to convert proof for tx %s to merkle path: %w", txID, err)
	}

	merkleRoot, err := merklePath.ComputeRootHex(&txID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute merkle root: %w", err)
	}
	if merkleRoot != header.MerkleRoot {
		return nil, fmt.Errorf("computed merkle root %q does not match block header %q", merkleRoot, header.MerkleRoot)
	}

	return &wdk.MerklePathResult{
		Name:        ServiceName,
		MerklePath:  merklePath,
		BlockHeader: header,
	}, nil
}

func (s *Service) getTscProof(ctx context.Context, txID string) (*tscProof, error) {
	var proofs []tscProof
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&proofs).
		Get(fmt.Sprintf("%s/tx/%s/proof/tsc", s.url, txID))
	if err != nil {
		return nil, fmt.Errorf("failed to query TSC proof: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching TSC proof", res.StatusCode())
	}
	if len(proofs) == 0 {
		return nil, nil
	}
	return &proofs[0], nil
}

func (s *Service) fetchMerkleHeader(ctx context.Context, blockHash string) (*wdk.MerklePathBlockHeader, error) {
	header, err := s.FindHeaderForBlockHash(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("block %s referenced by proof is unknown", blockHash)
	}

	return &wdk.MerklePathBlockHeader{
		Height:     header.Height,
		Hash:       blockHash,
		MerkleRoot: header.MerkleRoot,
	}, nil
}
