package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/codex-sdd/internal/agent"
	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

// singleAgentStage describes a one-shot agent run (review, tasks) that
// reads change documents and writes one artifact back into the change dir.
type singleAgentStage struct {
	// purpose is the stage name: run output, provenance entry, and
	// schema all key off it.
	purpose string
	// schema is the output schema file name under the schemas dir.
	schema string
	// artifact is the destination file inside the change directory.
	artifact string
	// renderPrompt builds the stage prompt from the change dir and ID.
	renderPrompt func(changeDir, changeID string) string
}

// runSingleAgent executes one read-only agent stage for a change and
// copies its output artifact into the change directory.
func runSingleAgent(ws *workspace, stage singleAgentStage, requestedID string) (string, error) {
	st, err := ws.store.Load()
	if err != nil {
		return "", err
	}
	changeID, err := resolveChangeID(st, requestedID)
	if err != nil {
		return "", err
	}
	changeDir, err := ws.paths.FindChangeDir(changeID)
	if err != nil {
		return "", err
	}
	log := ws.log.WithChange(changeID)
	log.Info(stage.purpose + " start")

	if err := scaffold.EnsureSchemas(ws.paths.SchemasDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(ws.paths.RunDir(changeID), 0755); err != nil {
		return "", err
	}

	promptPath := filepath.Join(ws.paths.ChangeContextDir(changeDir), stage.purpose+"_prompt.md")
	prompt := stage.renderPrompt(changeDir, changeID)
	if err := os.MkdirAll(filepath.Dir(promptPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(promptPath, []byte(prompt), 0644); err != nil {
		return "", err
	}

	outputPath, jsonPath := agent.OutputPaths(ws.paths.RunsDir, changeID, stage.purpose)
	result, err := ws.runner.Run(agent.ExecSpec{
		Cwd:            ws.paths.RepoRoot,
		PromptPath:     promptPath,
		OutputPath:     outputPath,
		JSONOutputPath: jsonPath,
		Sandbox:        agent.SandboxReadOnly,
		SchemaPath:     filepath.Join(ws.paths.SchemasDir, stage.schema),
	})
	if err != nil {
		return "", err
	}
	if !result.StatusOK {
		return "", fmt.Errorf("%s agent failed", stage.purpose)
	}

	err = ws.store.Update(func(st *state.State) error {
		st.RecordThread(changeID, stage.purpose, uuid.NewString())
		return nil
	})
	if err != nil {
		return "", err
	}

	contents, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", outputPath, err)
	}
	if err := os.WriteFile(filepath.Join(changeDir, stage.artifact), contents, 0644); err != nil {
		return "", err
	}
	return changeDir, nil
}
