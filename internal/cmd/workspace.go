package cmd

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/codex-sdd/internal/agent"
	"github.com/YuminosukeSato/codex-sdd/internal/config"
	"github.com/YuminosukeSato/codex-sdd/internal/git"
	"github.com/YuminosukeSato/codex-sdd/internal/logging"
	"github.com/YuminosukeSato/codex-sdd/internal/paths"
	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

// workspace bundles everything a repository-scoped command needs: the
// resolved path layout, configuration, logger, git client, agent runner,
// and state store.
type workspace struct {
	cfg    *config.Config
	paths  *paths.RepoPaths
	log    *logging.Logger
	git    *git.Client
	runner agent.Runner
	store  *state.Store
}

// openWorkspace resolves the repository root and builds the workspace.
// Fails when the working directory is not inside a git repository.
func openWorkspace(command string) (*workspace, error) {
	cfg := config.Get()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := git.FindRoot(cwd, &git.CLICommandExecutor{})
	if err != nil {
		return nil, err
	}
	p := paths.NewRepoPaths(root)

	log, err := logging.NewLogger(p.StateDir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	return &workspace{
		cfg:    cfg,
		paths:  p,
		log:    log.WithCommand(command),
		git:    git.NewClient(root),
		runner: agent.NewCLIRunner(cfg.Agent.Binary, cfg.Agent.PromptFlag, cfg.Agent.ExtraArgs),
		store:  state.NewStore(p.StatePath),
	}, nil
}

// close releases workspace resources.
func (ws *workspace) close() {
	_ = ws.log.Close()
}

// resolveChangeID returns the requested change ID, falling back to the
// active change recorded in state.
func resolveChangeID(st *state.State, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if st.ActiveChangeID == "" {
		return "", fmt.Errorf("no active change; pass --id")
	}
	return st.ActiveChangeID, nil
}

// ensureUniqueChangeID finds a change ID whose documentation directory
// does not exist yet, suffixing "-2", "-3", ... as needed.
func ensureUniqueChangeID(p *paths.RepoPaths, baseID, nameSlug string) string {
	candidate := baseID
	for counter := 2; ; counter++ {
		dir := p.ChangeDir(candidate, nameSlug)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", baseID, counter)
	}
}
