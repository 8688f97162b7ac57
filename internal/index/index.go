// Package index builds the content-addressed file index that drives shard
// dispatch and memoization. Identity is content: two files with identical
// bytes hash identically regardless of path, while the index itself is
// keyed by (path, hash) pairs in sorted path order so every downstream
// digest is deterministic.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/YuminosukeSato/codex-sdd/internal/logging"
)

// DefaultMaxBytes is the size threshold above which files are excluded.
const DefaultMaxBytes int64 = 1_000_000

// sniffLen is how many leading bytes are examined by the binary heuristic.
const sniffLen = 1024

// FileEntry describes one indexed file. Paths are normalized to forward
// slashes and unique within an index.
type FileEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// FileIndex is an ordered sequence of entries sorted ascending by path.
// The sort order is the canonical iteration order for all hashing and
// sharding.
type FileIndex struct {
	Files []FileEntry `json:"files"`
}

// Result holds everything a single index build produces.
type Result struct {
	Index      FileIndex
	RepoTree   string
	FileHashes map[string]string
	IndexHash  string
}

// FileLister enumerates version-controlled paths. Satisfied by git.Client.
type FileLister interface {
	// ListTracked returns all tracked paths; failure is fatal to the build.
	ListTracked() ([]string, error)
	// ListUntracked returns untracked-but-not-ignored paths, best-effort.
	ListUntracked() []string
}

// Builder builds file indexes for a repository root.
type Builder struct {
	root     string
	lister   FileLister
	log      *logging.Logger
	maxBytes int64
	globs    []glob.Glob
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxBytes overrides the file size threshold.
func WithMaxBytes(n int64) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxBytes = n
		}
	}
}

// WithExcludeGlobs adds extra exclusion patterns on top of the built-in
// directory exclusions. Patterns that fail to compile are ignored.
func WithExcludeGlobs(patterns []string) Option {
	return func(b *Builder) {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				continue
			}
			b.globs = append(b.globs, g)
		}
	}
}

// NewBuilder creates a Builder for the repository rooted at root.
func NewBuilder(root string, lister FileLister, log *logging.Logger, opts ...Option) *Builder {
	b := &Builder{
		root:     root,
		lister:   lister,
		log:      log,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build enumerates eligible files and computes per-file and aggregate
// hashes. Inability to enumerate tracked files is fatal, as is an
// unreadable file during hashing. A path failing normalization is skipped
// with a warning and the build continues.
func (b *Builder) Build(includeUntracked bool) (*Result, error) {
	files, err := b.lister.ListTracked()
	if err != nil {
		return nil, err
	}
	if includeUntracked {
		files = append(files, b.lister.ListUntracked()...)
	}
	sort.Strings(files)

	entries := make([]FileEntry, 0, len(files))
	fileHashes := make(map[string]string, len(files))

	for _, rel := range files {
		if Excluded(rel) || b.matchesGlob(rel) {
			continue
		}
		full := filepath.Join(b.root, rel)
		if info, err := os.Stat(full); err == nil && info.Size() > b.maxBytes {
			continue
		}
		binary, err := IsBinary(full)
		if err != nil {
			return nil, err
		}
		if binary {
			continue
		}
		hash, size, err := hashFile(full)
		if err != nil {
			return nil, err
		}
		path, err := NormalizePath(rel)
		if err != nil {
			b.log.Warn("skip invalid path", "path", rel, "error", err.Error())
			continue
		}
		if _, dup := fileHashes[path]; dup {
			continue
		}
		fileHashes[path] = hash
		entries = append(entries, FileEntry{Path: path, Hash: hash, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	idx := FileIndex{Files: entries}
	return &Result{
		Index:      idx,
		RepoTree:   RepoTree(&idx),
		FileHashes: fileHashes,
		IndexHash:  AggregateHash(entries),
	}, nil
}

// matchesGlob reports whether a path matches any configured extra pattern.
func (b *Builder) matchesGlob(rel string) bool {
	for _, g := range b.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Excluded reports whether a repository-relative path falls under one of
// the always-excluded directories: version-control metadata, build output,
// dependency trees, and the tool's own state directory.
func Excluded(rel string) bool {
	return strings.HasPrefix(rel, ".git/") ||
		strings.HasPrefix(rel, "target/") ||
		strings.HasPrefix(rel, "node_modules/") ||
		strings.HasPrefix(rel, ".codex/sdd/")
}

// IsBinary applies the binary heuristic: a zero byte anywhere in the first
// 1024 bytes classifies the file as binary. An unopenable file is an error;
// indexing treats that as fatal.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		n = 0
	}
	for _, c := range buf[:n] {
		if c == 0 {
			return true, nil
		}
	}
	return false, nil
}

// NormalizePath converts a repository-relative path to its canonical
// forward-slash form. Paths that are not valid UTF-8 are rejected; the
// caller skips them with a warning.
func NormalizePath(rel string) (string, error) {
	if !utf8.ValidString(rel) {
		return "", fmt.Errorf("invalid utf-8 path: %q", rel)
	}
	return strings.ReplaceAll(rel, "\\", "/"), nil
}

// hashFile computes a streaming sha256 digest over a file's raw bytes.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// AggregateHash folds the (path, hash) pairs of an ordered entry sequence
// into a single digest. Any membership or content change changes the
// result deterministically.
func AggregateHash(entries []FileEntry) string {
	h := sha256.New()
	for _, entry := range entries {
		h.Write([]byte(entry.Path))
		h.Write([]byte(entry.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RepoTree renders the index as one path per line, used as agent context.
func RepoTree(idx *FileIndex) string {
	var b strings.Builder
	for _, entry := range idx.Files {
		b.WriteString(entry.Path)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteIndex persists a file index as JSON with stable field names.
func WriteIndex(path string, idx *FileIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize index: %w", err)
	}
	return writeFile(path, data)
}

// WriteRepoTree persists the repo tree listing.
func WriteRepoTree(path, tree string) error {
	return writeFile(path, []byte(tree))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
