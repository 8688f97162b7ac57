// Package state owns the durable, schema-versioned state document shared by
// every command invocation. The document is loaded at command start, mutated
// in memory, and written back atomically at the end; an exclusive lock file
// next to the document serializes concurrent invocations.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

// SchemaVersion is the only state document schema this build understands.
// A document with any other version is a fatal error; there is no migration.
const SchemaVersion = 1

// ToolVersion is stamped into new state documents.
const ToolVersion = "0.1.0"

// State is the process-wide persisted document.
type State struct {
	SchemaVersion  int                     `json:"schema_version"`
	ToolVersion    string                  `json:"tool_version"`
	ActiveChangeID string                  `json:"active_change_id,omitempty"`
	Changes        map[string]*ChangeState `json:"changes"`
}

// ChangeState is the per-change record: approval, hashes, provenance.
// It is created lazily on first reference and removed only on archival.
type ChangeState struct {
	Approved             bool              `json:"approved"`
	ApprovedAt           string            `json:"approved_at,omitempty"`
	ApprovedBy           string            `json:"approved_by,omitempty"`
	FileIndexHash        string            `json:"file_index_hash,omitempty"`
	FileIndexGeneratedAt string            `json:"file_index_generated_at,omitempty"`
	CodexThreads         []Thread          `json:"codex_threads"`
	FileHashes           map[string]string `json:"file_hashes"`
	ReaderShardHashes    map[string]string `json:"reader_shard_hashes"`
	BaseCommit           string            `json:"base_commit,omitempty"`
}

// Thread is one append-only provenance entry recording an external
// collaborator interaction.
type Thread struct {
	Purpose   string `json:"purpose"`
	ThreadID  string `json:"thread_id"`
	StartedAt string `json:"started_at"`
}

// New returns a fresh default state document.
func New() *State {
	return &State{
		SchemaVersion: SchemaVersion,
		ToolVersion:   ToolVersion,
		Changes:       make(map[string]*ChangeState),
	}
}

// Load reads the state document at path. A missing file yields a fresh
// default state. A present file with an unsupported schema version is a
// fatal, unrecoverable error.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.NewStateError("load", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewStateError("load", fmt.Errorf("parse %s: %w", filepath.Base(path), err))
	}
	// Older writers omitted the version; treat zero as current.
	if s.SchemaVersion == 0 {
		s.SchemaVersion = SchemaVersion
	}
	if s.SchemaVersion != SchemaVersion {
		return nil, errors.NewStateError("load",
			fmt.Errorf("%w: %d", errors.ErrSchemaVersion, s.SchemaVersion))
	}
	if s.ToolVersion == "" {
		s.ToolVersion = ToolVersion
	}
	if s.Changes == nil {
		s.Changes = make(map[string]*ChangeState)
	}
	return &s, nil
}

// Save writes the full document atomically: serialized to a temp file in
// the same directory, synced, then renamed over the target so a reader
// never observes a half-written file.
func (s *State) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStateError("save", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewStateError("save", err)
	}
	if err := atomicWriteFile(path, data, 0644); err != nil {
		return errors.NewStateError("save", err)
	}
	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a
// temporary file first, then renaming.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// ChangeStateMut returns the ChangeState for a change ID, creating it on
// first reference. Idempotent on repeated calls.
func (s *State) ChangeStateMut(changeID string) *ChangeState {
	cs, ok := s.Changes[changeID]
	if !ok {
		cs = &ChangeState{
			CodexThreads:      []Thread{},
			FileHashes:        make(map[string]string),
			ReaderShardHashes: make(map[string]string),
		}
		s.Changes[changeID] = cs
	}
	if cs.FileHashes == nil {
		cs.FileHashes = make(map[string]string)
	}
	if cs.ReaderShardHashes == nil {
		cs.ReaderShardHashes = make(map[string]string)
	}
	return cs
}

// ChangeState returns the recorded state for a change, or nil.
func (s *State) ChangeState(changeID string) *ChangeState {
	return s.Changes[changeID]
}

// ApproveChange marks a change approved, recording the actor and timestamp.
// Calling it again refreshes both fields; it never un-approves.
func (s *State) ApproveChange(changeID, approvedBy string) {
	cs := s.ChangeStateMut(changeID)
	cs.Approved = true
	cs.ApprovedAt = time.Now().UTC().Format(time.RFC3339)
	cs.ApprovedBy = approvedBy
}

// RequireApproved is the single hard gate consulted before worktree
// creation, test planning, and finalization. It fails for an unknown
// change and for a known-but-unapproved one.
func (s *State) RequireApproved(changeID string) error {
	cs, ok := s.Changes[changeID]
	if !ok {
		return errors.NewGateError(
			fmt.Sprintf("change %s", changeID), errors.ErrChangeNotFound)
	}
	if !cs.Approved {
		return errors.NewGateError(
			fmt.Sprintf("approval required for change %s", changeID), errors.ErrNotApproved)
	}
	return nil
}

// RecordThread appends one provenance entry for a change. The log is
// append-only; entries are never rewritten or removed except on archival.
func (s *State) RecordThread(changeID, purpose, threadID string) {
	cs := s.ChangeStateMut(changeID)
	cs.CodexThreads = append(cs.CodexThreads, Thread{
		Purpose:   purpose,
		ThreadID:  threadID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// RemoveChange deletes a change record. Only finalize calls this, as part
// of archival.
func (s *State) RemoveChange(changeID string) {
	delete(s.Changes, changeID)
	if s.ActiveChangeID == changeID {
		s.ActiveChangeID = ""
	}
}
