package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lexcodex/reliquary/agents"
	"github.com/lexcodex/reliquary/agents/pattern"
	"github.com/lexcodex/reliquary/framework"
	"github.com/lexcodex/reliquary/hitl"
	"github.com/lexcodex/reliquary/llm"
	"github.com/lexcodex/reliquary/persistence"
)

func newExcavateCmd() *cobra.Command {
	var (
		depth      int
		minSizeMB  int
		skipReview bool
		noUI       bool
	)

	cmd := &cobra.Command{
		Use:   "excavate [path]",
		Short: "Excavate a directory tree for reclaimable disk space",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := workspace
			if len(args) > 0 {
				target = args[0]
			}

			model, err := buildModel()
			if err != nil {
				return err
			}

			var store *persistence.SQLiteMemoryStore
			var memory agents.Memory
			if settings.EnableMemory {
				store, err = openMemoryStore()
				if err != nil {
					return err
				}
				defer store.Close()
				memory = store
			}

			orchestrator, err := agents.NewOrchestrator(model, memory, settings, rootLog)
			if err != nil {
				return err
			}

			session := framework.NewSession()
			task := &framework.Task{
				ID:          uuid.NewString(),
				Instruction: "Excavate reclaimable disk space",
				Params: map[string]any{
					"path":        target,
					"depth":       depth,
					"min_size_mb": minSizeMB,
				},
			}

			result, err := runPipeline(cmd, orchestrator, task, session, noUI)
			if err != nil {
				return err
			}
			for _, line := range result.Reasoning {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if !result.Success {
				return fmt.Errorf("excavation incomplete: %s", result.Error)
			}

			classifications := session.Classifications()
			if len(classifications) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing worth cleaning up was found.")
				return nil
			}
			if skipReview {
				fmt.Fprintf(cmd.OutOrStdout(), "%d classifications produced, review skipped.\n", len(classifications))
				return nil
			}

			gate := &hitl.ApprovalGate{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
			decisions, err := gate.Review(classifications)
			if err != nil {
				return err
			}
			if store != nil {
				recordDecisions(cmd, store, decisions)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 2, "Scan depth")
	cmd.Flags().IntVar(&minSizeMB, "min-size-mb", 100, "Minimum artifact size to report")
	cmd.Flags().BoolVar(&skipReview, "skip-review", false, "Produce classifications without the approval gate")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the progress display")
	return cmd
}

// runPipeline executes the orchestrator, optionally behind the bubbletea
// progress display.
func runPipeline(cmd *cobra.Command, orchestrator *pattern.Supervisor, task *framework.Task, session *framework.Session, noUI bool) (*framework.AgentResult, error) {
	ctx := cmd.Context()
	if noUI {
		return orchestrator.Execute(ctx, task, session)
	}

	steps := []string{"discovery", "classification"}
	if settings.EnableReflection {
		steps = append(steps, "reflection")
	}
	steps = append(steps, "validation")

	prog := tea.NewProgram(hitl.NewProgressModel(steps), tea.WithOutput(cmd.OutOrStdout()))
	orchestrator.OnStep = func(stepID string, status framework.StepStatus) {
		switch status {
		case framework.StepRunning:
			prog.Send(hitl.StepStartedMsg{Step: stepID})
		case framework.StepCompleted:
			prog.Send(hitl.StepFinishedMsg{Step: stepID, Ok: true})
		case framework.StepFailed:
			prog.Send(hitl.StepFinishedMsg{Step: stepID, Ok: false})
		}
	}

	var (
		result  *framework.AgentResult
		execErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		result, execErr = orchestrator.Execute(ctx, task, session)
		prog.Send(hitl.DoneMsg{})
	}()
	if _, err := prog.Run(); err != nil {
		return nil, err
	}
	<-done
	return result, execErr
}

func buildModel() (framework.LanguageModel, error) {
	var model framework.LanguageModel
	switch settings.Provider {
	case "ollama":
		model = llm.NewOllamaClient(settings.OllamaEndpoint, settings.Model, rootLog)
	case "openai", "":
		if settings.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured (set OPENAI_API_KEY)")
		}
		client, err := llm.NewOpenAIClient(settings.OpenAIAPIKey, settings.Model, rootLog)
		if err != nil {
			return nil, err
		}
		model = client
	default:
		return nil, fmt.Errorf("unknown provider %q", settings.Provider)
	}
	return llm.NewInstrumentedModel(model, rootLog), nil
}

func openMemoryStore() (*persistence.SQLiteMemoryStore, error) {
	dir := settings.DataDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return persistence.NewSQLiteMemoryStore(filepath.Join(dir, settings.MemoryDBPath))
}

func recordDecisions(cmd *cobra.Command, store *persistence.SQLiteMemoryStore, decisions []framework.UserDecision) {
	ctx := cmd.Context()
	for _, d := range decisions {
		c := d.Classification
		if c.Recommendation != framework.RecommendDelete {
			continue
		}
		approved := d.Status == framework.Approved
		if err := store.RecordDecision(ctx, d.Path, c.FileType, c.DirectoryType, approved); err != nil {
			rootLog.Warn().Err(err).Str("path", d.Path).Msg("failed to record decision")
		}
	}
}
