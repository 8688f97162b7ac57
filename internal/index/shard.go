package index

import (
	"crypto/sha256"
	"encoding/hex"
)

// Shard partitions an index into n contiguous partitions using chunk size
// ceil(len/n). The concatenation of all partitions, in order, reconstructs
// the index exactly. A shard count of zero yields no partitions; a count
// exceeding the entry count yields empty trailing partitions.
func Shard(idx *FileIndex, n int) [][]FileEntry {
	if n <= 0 {
		return nil
	}
	total := len(idx.Files)
	chunk := (total + n - 1) / n
	out := make([][]FileEntry, 0, n)
	for i := 0; i < n; i++ {
		start := i * chunk
		end := start + chunk
		if end > total {
			end = total
		}
		if start >= end {
			out = append(out, nil)
			continue
		}
		out = append(out, idx.Files[start:end])
	}
	return out
}

// ShardHash folds a shard's (path, hash) pairs, in shard order, into a
// digest. The digest is a change-detection key for memoization, not a
// content identity.
func ShardHash(entries []FileEntry) string {
	h := sha256.New()
	for _, entry := range entries {
		h.Write([]byte(entry.Path))
		h.Write([]byte(entry.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}
