package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/index"
	"github.com/YuminosukeSato/codex-sdd/internal/orchestrator"
	"github.com/YuminosukeSato/codex-sdd/internal/paths"
	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Start a change session: index the repo and dispatch reader agents",
	Long: `Plans builds a content-addressed index of the repository, splits it
into shards, and dispatches one reader agent per changed shard. Shards
whose hash is unchanged since the previous run are reused instead of
re-dispatched.`,
	RunE: runPlans,
}

func init() {
	plansCmd.Flags().String("name", "", "change name (required)")
	plansCmd.Flags().String("id", "", "change id (defaults to the slugified name)")
	plansCmd.Flags().Int("agents", 0, "number of reader shards (defaults from config)")
	plansCmd.Flags().Bool("include-untracked", false, "include untracked-but-not-ignored files")
	_ = plansCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(plansCmd)
}

func runPlans(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("plans")
	if err != nil {
		return err
	}
	defer ws.close()

	name, _ := cmd.Flags().GetString("name")
	id, _ := cmd.Flags().GetString("id")
	agents, _ := cmd.Flags().GetInt("agents")
	includeUntracked, _ := cmd.Flags().GetBool("include-untracked")
	if agents <= 0 {
		agents = ws.cfg.Plans.Agents
	}
	if !cmd.Flags().Changed("include-untracked") {
		includeUntracked = ws.cfg.Plans.IncludeUntracked
	}

	if err := scaffold.EnsureRepoScaffold(ws.paths.RepoRoot); err != nil {
		return err
	}

	nameSlug := paths.Slugify(name)
	baseID := id
	if baseID == "" {
		baseID = nameSlug
	}
	changeID := ensureUniqueChangeID(ws.paths, baseID, nameSlug)
	changeDir := ws.paths.ChangeDir(changeID, nameSlug)
	if err := scaffold.EnsureChangeScaffold(changeDir); err != nil {
		return err
	}
	log := ws.log.WithChange(changeID)
	log.Info("plans start", "agents", agents)

	builder := index.NewBuilder(ws.paths.RepoRoot, ws.git, log,
		index.WithMaxBytes(ws.cfg.Index.MaxFileBytes),
		index.WithExcludeGlobs(ws.cfg.Index.Exclude),
	)
	result, err := builder.Build(includeUntracked)
	if err != nil {
		return err
	}
	log.Info("index built", "files", len(result.Index.Files), "index_hash", result.IndexHash)

	contextDir := ws.paths.ChangeContextDir(changeDir)
	if err := index.WriteIndex(filepath.Join(contextDir, "file_index.json"), &result.Index); err != nil {
		return err
	}
	if err := index.WriteRepoTree(filepath.Join(contextDir, "repo_tree.txt"), result.RepoTree); err != nil {
		return err
	}

	if err := scaffold.EnsureSchemas(ws.paths.SchemasDir); err != nil {
		return err
	}

	shards := index.Shard(&result.Index, agents)

	// The whole dispatch runs under the state lock: shard hashes are
	// compared against, and merged into, the same state document.
	err = ws.store.Update(func(st *state.State) error {
		cs := st.ChangeStateMut(changeID)
		cs.FileHashes = result.FileHashes
		cs.FileIndexHash = result.IndexHash
		cs.FileIndexGeneratedAt = time.Now().UTC().Format(time.RFC3339)
		st.ActiveChangeID = changeID

		updates, err := orchestrator.New(ws.runner, log).DispatchReaders(orchestrator.Run{
			ChangeID:    changeID,
			RepoRoot:    ws.paths.RepoRoot,
			ContextDir:  contextDir,
			RunsDir:     ws.paths.RunsDir,
			SchemasDir:  ws.paths.SchemasDir,
			Shards:      shards,
			PriorHashes: cs.ReaderShardHashes,
		})
		if err != nil {
			return err
		}
		orchestrator.ApplyUpdates(st, changeID, updates)
		return nil
	})
	if err != nil {
		return err
	}

	digest, err := scaffold.ComposeRepoDigest(ws.paths.RunsDir, changeID, len(shards))
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(changeDir, "repo_digest.md"), []byte(digest), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(changeDir, "10_repo_digest.md"), []byte(digest), 0644); err != nil {
		return err
	}

	color.Green("plans complete: %s", changeDir)
	return nil
}
