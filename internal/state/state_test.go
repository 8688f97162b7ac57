package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.json")
}

// =============================================================================
// Load / Save
// =============================================================================

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(statePath(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.SchemaVersion != SchemaVersion {
		t.Errorf("expected schema version %d, got %d", SchemaVersion, s.SchemaVersion)
	}
	if s.ToolVersion != ToolVersion {
		t.Errorf("expected tool version %s, got %s", ToolVersion, s.ToolVersion)
	}
	if s.Changes == nil || len(s.Changes) != 0 {
		t.Errorf("expected empty changes map, got %v", s.Changes)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := statePath(t)
	s := New()
	s.ActiveChangeID = "001_demo"
	cs := s.ChangeStateMut("001_demo")
	cs.FileIndexHash = "abc123"
	cs.FileHashes["src/main.rs"] = "deadbeef"
	cs.ReaderShardHashes["reader_0"] = "cafe"
	s.RecordThread("001_demo", "reader_0", "thread-1")

	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ActiveChangeID != "001_demo" {
		t.Errorf("active change not restored: %q", loaded.ActiveChangeID)
	}
	got := loaded.ChangeState("001_demo")
	if got == nil {
		t.Fatal("change record not restored")
	}
	if got.FileIndexHash != "abc123" {
		t.Errorf("file index hash not restored: %q", got.FileIndexHash)
	}
	if got.FileHashes["src/main.rs"] != "deadbeef" {
		t.Errorf("file hashes not restored: %v", got.FileHashes)
	}
	if got.ReaderShardHashes["reader_0"] != "cafe" {
		t.Errorf("shard hashes not restored: %v", got.ReaderShardHashes)
	}
	if len(got.CodexThreads) != 1 || got.CodexThreads[0].ThreadID != "thread-1" {
		t.Errorf("threads not restored: %v", got.CodexThreads)
	}
}

func TestLoad_SchemaMismatchIsFatal(t *testing.T) {
	path := statePath(t)
	if err := os.WriteFile(path, []byte(`{"schema_version": 99}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for schema mismatch")
	}
	if !errors.Is(err, errors.ErrSchemaVersion) {
		t.Errorf("expected ErrSchemaVersion, got %v", err)
	}
}

func TestLoad_ZeroVersionNormalizedToCurrent(t *testing.T) {
	path := statePath(t)
	if err := os.WriteFile(path, []byte(`{"changes": {}}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.SchemaVersion != SchemaVersion {
		t.Errorf("expected normalized version %d, got %d", SchemaVersion, s.SchemaVersion)
	}
}

func TestLoad_MalformedJSONIsFatal(t *testing.T) {
	path := statePath(t)
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestSave_WireFieldNames(t *testing.T) {
	path := statePath(t)
	s := New()
	s.ApproveChange("001_demo", "alice")
	s.RecordThread("001_demo", "review", "t-1")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	text := string(data)
	for _, field := range []string{
		`"schema_version"`, `"tool_version"`, `"changes"`,
		`"approved"`, `"approved_at"`, `"approved_by"`,
		`"codex_threads"`, `"purpose"`, `"thread_id"`, `"started_at"`,
		`"file_hashes"`, `"reader_shard_hashes"`,
	} {
		if !strings.Contains(text, field) {
			t.Errorf("serialized state missing field %s", field)
		}
	}
}

func TestSave_NoPartialFileLeftBehind(t *testing.T) {
	path := statePath(t)
	if err := New().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

// =============================================================================
// Change records
// =============================================================================

func TestChangeStateMut_Idempotent(t *testing.T) {
	s := New()
	first := s.ChangeStateMut("001_demo")
	first.FileIndexHash = "abc"
	second := s.ChangeStateMut("001_demo")
	if first != second {
		t.Error("repeated calls should return the same record")
	}
	if second.FileIndexHash != "abc" {
		t.Error("existing record was reset")
	}
}

func TestChangeStateMut_RepairsNilMaps(t *testing.T) {
	s := New()
	s.Changes["001_demo"] = &ChangeState{}
	cs := s.ChangeStateMut("001_demo")
	if cs.FileHashes == nil || cs.ReaderShardHashes == nil {
		t.Error("nil maps should be repaired on access")
	}
}

func TestApproveChange_RefreshesOnRepeat(t *testing.T) {
	s := New()
	s.ApproveChange("001_demo", "alice")
	cs := s.ChangeState("001_demo")
	if !cs.Approved || cs.ApprovedBy != "alice" || cs.ApprovedAt == "" {
		t.Fatalf("approval not recorded: %+v", cs)
	}
	s.ApproveChange("001_demo", "bob")
	if cs.ApprovedBy != "bob" {
		t.Errorf("repeat approval should update actor, got %q", cs.ApprovedBy)
	}
	if !cs.Approved {
		t.Error("repeat approval should never un-approve")
	}
}

func TestRequireApproved(t *testing.T) {
	s := New()
	err := s.RequireApproved("missing")
	if !errors.Is(err, errors.ErrChangeNotFound) {
		t.Errorf("expected ErrChangeNotFound for unknown change, got %v", err)
	}

	s.ChangeStateMut("001_demo")
	err = s.RequireApproved("001_demo")
	if !errors.Is(err, errors.ErrNotApproved) {
		t.Errorf("expected ErrNotApproved for unapproved change, got %v", err)
	}
	if !errors.IsGateViolation(err) {
		t.Errorf("approval failure should be a gate violation, got %v", err)
	}

	s.ApproveChange("001_demo", "alice")
	if err := s.RequireApproved("001_demo"); err != nil {
		t.Errorf("approved change should pass, got %v", err)
	}
}

func TestRecordThread_AppendOnly(t *testing.T) {
	s := New()
	s.RecordThread("001_demo", "reader_0", "t-1")
	s.RecordThread("001_demo", "reader_1", "t-2")
	s.RecordThread("001_demo", "review", "t-3")

	threads := s.ChangeState("001_demo").CodexThreads
	if len(threads) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(threads))
	}
	wantIDs := []string{"t-1", "t-2", "t-3"}
	for i, th := range threads {
		if th.ThreadID != wantIDs[i] {
			t.Errorf("thread %d: expected %s, got %s", i, wantIDs[i], th.ThreadID)
		}
		if th.StartedAt == "" {
			t.Errorf("thread %d: missing timestamp", i)
		}
	}
}

func TestRemoveChange_ClearsActivePointer(t *testing.T) {
	s := New()
	s.ChangeStateMut("001_demo")
	s.ActiveChangeID = "001_demo"
	s.RemoveChange("001_demo")
	if s.ChangeState("001_demo") != nil {
		t.Error("change record not removed")
	}
	if s.ActiveChangeID != "" {
		t.Errorf("active pointer not cleared: %q", s.ActiveChangeID)
	}
}

// =============================================================================
// Lock
// =============================================================================

func TestAcquireLock_Exclusive(t *testing.T) {
	path := statePath(t)
	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer lock.Release()

	if _, err := AcquireLock(path); !errors.Is(err, errors.ErrStateLocked) {
		t.Errorf("expected ErrStateLocked on second acquire, got %v", err)
	}
}

func TestAcquireLock_ReleaseAllowsReacquire(t *testing.T) {
	path := statePath(t)
	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("repeat release should be a no-op, got %v", err)
	}

	second, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
	second.Release()
}

func TestAcquireLock_BreaksStaleLock(t *testing.T) {
	path := statePath(t)
	lockPath := filepath.Join(filepath.Dir(path), LockFileName)
	// PID 0 is never a live process, so this lock is stale on arrival.
	stale, err := json.Marshal(&Lock{PID: 0, Hostname: "ghost"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(lockPath, stale, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("expected stale lock to be broken, got %v", err)
	}
	lock.Release()
}

// =============================================================================
// Store
// =============================================================================

func TestStore_UpdatePersists(t *testing.T) {
	store := NewStore(statePath(t))
	err := store.Update(func(s *State) error {
		s.ApproveChange("001_demo", "alice")
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.RequireApproved("001_demo"); err != nil {
		t.Errorf("approval not persisted: %v", err)
	}
}

func TestStore_UpdateErrorSkipsSave(t *testing.T) {
	store := NewStore(statePath(t))
	wantErr := errors.New("mutation failed")
	err := store.Update(func(s *State) error {
		s.ActiveChangeID = "should-not-persist"
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ActiveChangeID != "" {
		t.Error("failed mutation should not be saved")
	}
}

func TestStore_UpdateReleasesLockOnError(t *testing.T) {
	store := NewStore(statePath(t))
	_ = store.Update(func(s *State) error {
		return errors.New("boom")
	})
	err := store.Update(func(s *State) error { return nil })
	if err != nil {
		t.Errorf("lock should be released after failed update, got %v", err)
	}
}
