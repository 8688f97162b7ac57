package index

import (
	"fmt"
	"testing"
)

func makeIndex(n int) *FileIndex {
	idx := &FileIndex{}
	for i := 0; i < n; i++ {
		idx.Files = append(idx.Files, FileEntry{
			Path: fmt.Sprintf("file_%03d.txt", i),
			Hash: fmt.Sprintf("hash%d", i),
			Size: int64(i),
		})
	}
	return idx
}

func TestShard_CoversEveryEntryOnce(t *testing.T) {
	tests := []struct {
		name    string
		entries int
		shards  int
	}{
		{"even split", 8, 4},
		{"uneven split", 10, 3},
		{"more shards than entries", 2, 5},
		{"single shard", 7, 1},
		{"single entry", 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := makeIndex(tt.entries)
			shards := Shard(idx, tt.shards)

			if len(shards) != tt.shards {
				t.Fatalf("expected %d shards, got %d", tt.shards, len(shards))
			}
			var flat []FileEntry
			for _, s := range shards {
				flat = append(flat, s...)
			}
			if len(flat) != tt.entries {
				t.Fatalf("expected %d entries across shards, got %d", tt.entries, len(flat))
			}
			for i, entry := range flat {
				if entry != idx.Files[i] {
					t.Errorf("entry %d out of order: got %q", i, entry.Path)
				}
			}
		})
	}
}

func TestShard_ZeroShardCount(t *testing.T) {
	if got := Shard(makeIndex(5), 0); got != nil {
		t.Errorf("expected nil for zero shard count, got %d shards", len(got))
	}
	if got := Shard(makeIndex(5), -1); got != nil {
		t.Errorf("expected nil for negative shard count, got %d shards", len(got))
	}
}

func TestShard_EmptyIndex(t *testing.T) {
	shards := Shard(&FileIndex{}, 3)
	if len(shards) != 3 {
		t.Fatalf("expected 3 shards, got %d", len(shards))
	}
	for i, s := range shards {
		if len(s) != 0 {
			t.Errorf("shard %d: expected empty, got %d entries", i, len(s))
		}
	}
}

func TestShard_TrailingShardsEmpty(t *testing.T) {
	// 2 entries over 5 shards: chunk size 1, so shards 2..4 are empty.
	shards := Shard(makeIndex(2), 5)
	for i := 2; i < 5; i++ {
		if len(shards[i]) != 0 {
			t.Errorf("shard %d: expected empty trailing shard, got %d entries", i, len(shards[i]))
		}
	}
}

func TestShardHash_SensitiveToContentAndOrder(t *testing.T) {
	a := []FileEntry{{Path: "a.txt", Hash: "h1"}, {Path: "b.txt", Hash: "h2"}}
	b := []FileEntry{{Path: "a.txt", Hash: "h1"}, {Path: "b.txt", Hash: "h3"}}
	reversed := []FileEntry{a[1], a[0]}

	if ShardHash(a) != ShardHash(a) {
		t.Error("shard hash not deterministic")
	}
	if ShardHash(a) == ShardHash(b) {
		t.Error("shard hash unchanged after entry hash change")
	}
	if ShardHash(a) == ShardHash(reversed) {
		t.Error("shard hash unchanged after reordering")
	}
}
