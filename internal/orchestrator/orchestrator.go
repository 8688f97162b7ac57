// Package orchestrator dispatches one concurrent unit of work per changed
// shard against the external agent runner. Unchanged shards whose output
// artifact still exists are skipped (memoized reuse). Dispatched units all
// run to completion before any failure is reported, and the per-shard
// state updates are applied serially after the join, so the merged result
// is independent of unit completion order.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/YuminosukeSato/codex-sdd/internal/agent"
	"github.com/YuminosukeSato/codex-sdd/internal/errors"
	"github.com/YuminosukeSato/codex-sdd/internal/index"
	"github.com/YuminosukeSato/codex-sdd/internal/logging"
	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

// Orchestrator coordinates shard dispatch for one change.
type Orchestrator struct {
	runner agent.Runner
	log    *logging.Logger
	watch  bool
}

// New creates an Orchestrator using the given agent runner.
func New(runner agent.Runner, log *logging.Logger) *Orchestrator {
	return &Orchestrator{runner: runner, log: log, watch: true}
}

// WithoutArtifactWatch disables the fsnotify progress watcher. Used in
// tests where the fake runner writes no artifacts.
func (o *Orchestrator) WithoutArtifactWatch() *Orchestrator {
	o.watch = false
	return o
}

// Run describes one reader dispatch over a sharded index.
type Run struct {
	ChangeID   string
	RepoRoot   string
	ContextDir string
	RunsDir    string
	SchemasDir string
	Shards     [][]index.FileEntry
	// PriorHashes maps shard name to the hash stored by the previous
	// run; shards matching it with an existing artifact are skipped.
	PriorHashes map[string]string
}

// ShardUpdate records the outcome of one dispatched shard: the hash to
// store and the provenance thread ID minted for the dispatch.
type ShardUpdate struct {
	Name     string
	Hash     string
	ThreadID string
}

// unitResult is what one concurrent unit reports back through the pool.
type unitResult struct {
	update ShardUpdate
	ok     bool
	err    error
}

// ShardName returns the canonical name for the i-th reader shard. Shard
// names are the keys of the memoization map and of the per-shard output
// artifacts.
func ShardName(i int) string {
	return fmt.Sprintf("reader_%d", i)
}

// DispatchReaders dispatches one unit per changed non-empty shard and
// joins them all. Memoized shards contribute no work. If any unit fails,
// the whole dispatch fails after every unit has completed; no sibling is
// cancelled. On success it returns one ShardUpdate per dispatched shard.
func (o *Orchestrator) DispatchReaders(run Run) ([]ShardUpdate, error) {
	if err := os.MkdirAll(filepath.Join(run.RunsDir, run.ChangeID), 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	if o.watch {
		watcher, err := watchArtifacts(filepath.Join(run.RunsDir, run.ChangeID), o.log)
		if err != nil {
			o.log.Warn("artifact watcher unavailable", "error", err.Error())
		} else {
			defer watcher.Close()
		}
	}

	p := pool.NewWithResults[unitResult]()
	dispatched := 0

	for i, shard := range run.Shards {
		if len(shard) == 0 {
			continue
		}
		name := ShardName(i)
		hash := index.ShardHash(shard)
		outputPath, jsonPath := agent.OutputPaths(run.RunsDir, run.ChangeID, name)

		if run.PriorHashes[name] == hash && fileExists(outputPath) {
			o.log.Info("reuse shard", "shard", name)
			continue
		}

		promptPath := filepath.Join(run.ContextDir, fmt.Sprintf("reader_prompt_%d.md", i))
		prompt := scaffold.RenderReaderPrompt(run.ChangeID, i, len(run.Shards), shard)
		if err := writeFile(promptPath, prompt); err != nil {
			return nil, err
		}

		spec := agent.ExecSpec{
			Cwd:            run.RepoRoot,
			PromptPath:     promptPath,
			OutputPath:     outputPath,
			JSONOutputPath: jsonPath,
			Sandbox:        agent.SandboxReadOnly,
			SchemaPath:     filepath.Join(run.SchemasDir, "reader.json"),
		}

		update := ShardUpdate{Name: name, Hash: hash, ThreadID: uuid.NewString()}
		dispatched++
		o.log.Info("dispatch shard", "shard", name, "files", len(shard))

		p.Go(func() unitResult {
			result, err := o.runner.Run(spec)
			if err != nil {
				return unitResult{update: update, err: err}
			}
			return unitResult{update: update, ok: result.StatusOK}
		})
	}

	// Join-all: every dispatched unit runs to completion before any
	// failure is surfaced.
	results := p.Wait()

	var failed []string
	updates := make([]ShardUpdate, 0, dispatched)
	var firstErr error
	for _, r := range results {
		switch {
		case r.err != nil:
			failed = append(failed, r.update.Name)
			if firstErr == nil {
				firstErr = r.err
			}
		case !r.ok:
			failed = append(failed, r.update.Name)
		default:
			updates = append(updates, r.update)
		}
	}
	if len(failed) > 0 {
		if firstErr != nil {
			return nil, errors.Wrapf(firstErr, "reader agents failed: %v", failed)
		}
		return nil, fmt.Errorf("reader agents failed: %v", failed)
	}
	return updates, nil
}

// ApplyUpdates folds the dispatch outcomes into the change state: one
// provenance entry and one shard hash per dispatched shard. The hash map
// is key-unique, so the merged state does not depend on the order units
// completed in. Must be called from a single goroutine after the join.
func ApplyUpdates(st *state.State, changeID string, updates []ShardUpdate) {
	for _, update := range updates {
		st.RecordThread(changeID, update.Name, update.ThreadID)
		cs := st.ChangeStateMut(changeID)
		cs.ReaderShardHashes[update.Name] = update.Hash
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
