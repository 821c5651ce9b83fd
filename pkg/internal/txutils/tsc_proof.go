package txutils

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/go-softwarelab/common/pkg/to"
)

const duplicateNodeMarker = "*"

// MerklePathFromTscProof converts a TSC proof (txid index plus sibling hashes
// from leaf to root) into an SDK MerklePath.
func MerklePathFromTscProof(txid string, index int, nodes []string, blockHeight uint32) (*transaction.MerklePath, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no nodes in TSC proof for txid %s", txid)
	}

	txidHash, err := chainhash.NewHashFromHex(txid)
	if err != nil {
		return nil, fmt.Errorf("invalid txid: %w", err)
	}

	treeHeight := len(nodes)
	path := make([][]*transaction.PathElement, treeHeight)

	offset, err := to.UInt64(index)
	if err != nil {
		return nil, fmt.Errorf("invalid index %d: %w", index, err)
	}
	txidLeaf := &transaction.PathElement{
		Offset: offset,
		Hash:   txidHash,
		Txid:   to.Ptr(true),
	}

	sibling, err := pathElement(nodes[0], index^1, nodes[0] == txid)
	if err != nil {
		return nil, fmt.Errorf("invalid node hash at level 0: %w", err)
	}

	if index%2 == 1 {
		path[0] = []*transaction.PathElement{sibling, txidLeaf}
	} else {
		path[0] = []*transaction.PathElement{txidLeaf, sibling}
	}

	currentIndex := index >> 1
	for level := 1; level < treeHeight; level++ {
		sibling, err := pathElement(nodes[level], currentIndex^1, false)
		if err != nil {
			return nil, fmt.Errorf("invalid node hash at level %d: %w", level, err)
		}
		path[level] = []*transaction.PathElement{sibling}
		currentIndex >>= 1
	}

	return transaction.NewMerklePath(blockHeight, path), nil
}

func pathElement(node string, siblingIndex int, duplicate bool) (*transaction.PathElement, error) {
	offset, err := to.UInt64(siblingIndex)
	if err != nil {
		return nil, fmt.Errorf("invalid sibling index %d: %w", siblingIndex, err)
	}
	element := &transaction.PathElement{Offset: offset}

	if node == duplicateNodeMarker || duplicate {
		element.Duplicate = to.Ptr(true)
		return element, nil
	}

	nodeHash, err := chainhash.NewHashFromHex(node)
	if err != nil {
		return nil, fmt.Errorf("invalid node hash %q: %w", node, err)
	}
	element.Hash = nodeHash
	return element, nil
}
