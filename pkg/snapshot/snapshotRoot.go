package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"slices"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
	"golang.org/x/xerrors"
)

var (
	MerkleLeafPrefix_SnapshotHeader = []byte("snapshot_header")
	MerkleLeafPrefix_SnapshotRow    = []byte("snapshot_row")
)

func headerLeaf(kind string, operatorId string, date time.Time, block uint64) []byte {
	leaf := append([]byte{}, MerkleLeafPrefix_SnapshotHeader...)
	leaf = append(leaf, []byte(kind+"|"+operatorId+"|"+date.Format(time.DateOnly)+"|")...)
	return binary.BigEndian.AppendUint64(leaf, block)
}

// canonicalRow renders a row as JSON with sorted keys. The store-assigned id
// is excluded.
func canonicalRow(row storage.Row) ([]byte, error) {
	copied := row.Copy()
	delete(copied, types.Column_Id)
	for k, v := range copied {
		if t, ok := v.(time.Time); ok {
			copied[k] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	return json.Marshal(copied)
}

// ComputeSnapshotRoot builds a keccak256 merkle tree over the rows written for
// one (kind, operator, date). Row order does not affect the root.
func ComputeSnapshotRoot(kind string, operatorId string, date time.Time, block uint64, rows []storage.Row) ([]byte, error) {
	encoded := make([][]byte, 0, len(rows))
	for _, row := range rows {
		b, err := canonicalRow(row)
		if err != nil {
			return nil, xerrors.Errorf("failed to encode snapshot row: %w", err)
		}
		encoded = append(encoded, append(append([]byte{}, MerkleLeafPrefix_SnapshotRow...), b...))
	}
	slices.SortFunc(encoded, func(a, b []byte) int {
		return slices.Compare(a, b)
	})

	leaves := [][]byte{headerLeaf(kind, operatorId, NormalizeDate(date), block)}
	leaves = append(leaves, encoded...)

	tree, err := merkletree.NewTree(
		merkletree.WithData(leaves),
		merkletree.WithHashType(keccak256.New()),
	)
	if err != nil {
		return nil, err
	}
	return tree.Root(), nil
}
