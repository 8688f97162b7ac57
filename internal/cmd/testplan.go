package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/agent"
	"github.com/YuminosukeSato/codex-sdd/internal/errors"
	"github.com/YuminosukeSato/codex-sdd/internal/quality"
	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
)

var testPlanCmd = &cobra.Command{
	Use:   "test-plan",
	Short: "Run test-plan agents, tests, and coverage in each worktree",
	RunE:  runTestPlan,
}

func init() {
	testPlanCmd.Flags().String("id", "", "change id (defaults to the active change)")
	testPlanCmd.Flags().String("coverage", "", "coverage tool: llvm-cov, tarpaulin, or none")
	rootCmd.AddCommand(testPlanCmd)
}

func runTestPlan(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("test-plan")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	coverageTool, _ := cmd.Flags().GetString("coverage")
	if coverageTool == "" {
		coverageTool = ws.cfg.Coverage.Tool
	}

	st, err := ws.store.Load()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeID(st, id)
	if err != nil {
		return err
	}
	// Hard gate: test planning is only available after approval.
	if err := st.RequireApproved(changeID); err != nil {
		return err
	}
	changeDir, err := ws.paths.FindChangeDir(changeID)
	if err != nil {
		return err
	}
	log := ws.log.WithChange(changeID)
	log.Info("test-plan start", "coverage", coverageTool)

	worktreeRoot := ws.paths.WorktreeRoot(changeID)
	if _, err := os.Stat(worktreeRoot); err != nil {
		return errors.ErrWorktreeMissing
	}
	if err := scaffold.EnsureSchemas(ws.paths.SchemasDir); err != nil {
		return err
	}
	runDir := ws.paths.RunDir(changeID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(worktreeRoot)
	if err != nil {
		return err
	}

	runner := quality.NewRunner()
	var metrics []quality.VariantMetrics
	var planSections []string

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		agentName := entry.Name()
		worktreePath := filepath.Join(worktreeRoot, agentName)

		promptPath := filepath.Join(ws.paths.ChangeContextDir(changeDir),
			fmt.Sprintf("test_plan_prompt_%s.md", agentName))
		prompt := scaffold.RenderTestPlanPrompt(changeID, agentName)
		if err := os.WriteFile(promptPath, []byte(prompt), 0644); err != nil {
			return err
		}

		outputPath, jsonPath := agent.OutputPaths(ws.paths.RunsDir, changeID, "test_plan_"+agentName)
		result, err := ws.runner.Run(agent.ExecSpec{
			Cwd:            worktreePath,
			PromptPath:     promptPath,
			OutputPath:     outputPath,
			JSONOutputPath: jsonPath,
			Sandbox:        agent.SandboxWorkspaceWrite,
			SchemaPath:     filepath.Join(ws.paths.SchemasDir, "tasks.json"),
		})
		if err != nil {
			return err
		}
		if !result.StatusOK {
			return fmt.Errorf("test plan agent failed: %s", agentName)
		}

		testResult, err := runner.RunTests(worktreePath)
		if err != nil {
			return err
		}
		testOutputPath := filepath.Join(runDir, fmt.Sprintf("test_results_%s.txt", agentName))
		if err := os.WriteFile(testOutputPath, []byte(testResult.Stdout), 0644); err != nil {
			return err
		}
		log.Info("tests finished", "agent", agentName, "passed", testResult.Success)

		var coveragePercent *float64
		var coverageOutputPath string
		switch coverageTool {
		case "none":
		default:
			var cov *quality.CoverageResult
			if coverageTool == "tarpaulin" {
				cov, err = runner.RunTarpaulin(worktreePath)
			} else {
				cov, err = runner.RunLLVMCov(worktreePath)
			}
			if err != nil {
				return err
			}
			coverageOutputPath = filepath.Join(runDir, fmt.Sprintf("coverage_%s.txt", agentName))
			if err := os.WriteFile(coverageOutputPath, []byte(cov.Stdout), 0644); err != nil {
				return err
			}
			coveragePercent = cov.Percent
		}

		contents, err := os.ReadFile(outputPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", outputPath, err)
		}
		planSections = append(planSections, fmt.Sprintf("## %s\n\n%s\n", agentName, contents))

		metrics = append(metrics, quality.VariantMetrics{
			Agent:           agentName,
			TestsPassed:     testResult.Success,
			CoveragePercent: coveragePercent,
			CoverageTool:    coverageTool,
			TestOutput:      testOutputPath,
			CoverageOutput:  coverageOutputPath,
		})
	}

	summary := "# Test Plan\n\n" + strings.Join(planSections, "\n")
	if err := os.WriteFile(filepath.Join(changeDir, "50_test_plan.md"), []byte(summary), 0644); err != nil {
		return err
	}
	if err := quality.WriteJSON(filepath.Join(runDir, "metrics.json"), metrics); err != nil {
		return err
	}

	color.Green("test-plan complete: %s", changeDir)
	return nil
}
