package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"crsurvey/internal/models"
	"crsurvey/internal/output"
	"crsurvey/internal/store"
)

var statusCompleted bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the evaluator slot dashboard",
	Long: `Show a table of every evaluator slot: its UUID, current stage,
answered/assigned progress, and completion date.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusOverviewRun()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusCompleted, "completed", false, "Show only evaluators who finished the survey")
	rootCmd.AddCommand(statusCmd)
}

func statusOverviewRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	evaluators, err := s.ListEvaluators(ctx)
	if err != nil {
		return err
	}

	if len(evaluators) == 0 {
		ui.Info("No evaluator slots. Use 'crsurvey seed <file.yaml>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Evaluator", "Stage", "Progress", "Completed"})

	var free, done int
	for _, e := range evaluators {
		if !e.SpotTaken {
			free++
		}
		if e.DateCompleted != nil {
			done++
		}
		if statusCompleted && e.DateCompleted == nil {
			continue
		}

		assigned, answered, err := evaluatorProgress(ctx, s, e)
		if err != nil {
			return err
		}

		pct := 0
		if assigned > 0 {
			pct = answered * 100 / assigned
		}

		completed := "-"
		if e.DateCompleted != nil {
			completed = e.DateCompleted.Format("2006-01-02 15:04")
		}

		table.Append([]string{
			output.Cyan(e.UUID),
			output.StageColor(evaluatorStage(e)),
			fmt.Sprintf("%d/%d (%s)", answered, assigned, output.ProgressColor(pct)),
			completed,
		})
	}

	table.Render()
	fmt.Fprintf(ui.Out, "\n%d slots, %d free, %d completed\n", len(evaluators), free, done)
	return nil
}

// evaluatorStage maps an evaluator row to its display stage.
func evaluatorStage(e *models.Evaluator) string {
	switch {
	case e.DateCompleted != nil:
		return "completed"
	case e.ProfileDone():
		return "in_progress"
	case e.SpotTaken:
		return "claimed"
	default:
		return "available"
	}
}

func evaluatorProgress(ctx context.Context, s store.Store, e *models.Evaluator) (assigned, answered int, err error) {
	ids, err := s.ListAssignedReviewIDs(ctx, e.ID)
	if err != nil {
		return 0, 0, err
	}
	answered, err = s.CountAnsweredItems(ctx, e.UUID)
	if err != nil {
		return 0, 0, err
	}
	return len(ids), answered, nil
}
