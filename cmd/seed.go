package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"crsurvey/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Seed evaluator slots, review items, and assignments from a YAML file",
	Long: `Seed the database from a YAML file describing the study:

  evaluators: 5
  review_items:
    - summary: "Fix nil map write in config loader"
      ground_truth: "..."
      prediction: "..."
      chain_of_thought: "..."
      patch: "..."

Each evaluator slot gets a fresh UUID. Review items without an explicit
hash get one derived from their content. Unless --no-assign is given,
every evaluator is assigned every review item in file order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return seedRun(cmd.Context(), args[0])
	},
}

var seedNoAssign bool

func init() {
	seedCmd.Flags().BoolVar(&seedNoAssign, "no-assign", false, "Skip assigning review items to evaluators")
	rootCmd.AddCommand(seedCmd)
}

// seedFile is the YAML schema for the seed command.
type seedFile struct {
	Evaluators  int              `yaml:"evaluators"`
	ReviewItems []seedReviewItem `yaml:"review_items"`
}

type seedReviewItem struct {
	Hash           string `yaml:"hash"`
	ChainOfThought string `yaml:"chain_of_thought"`
	GroundTruth    string `yaml:"ground_truth"`
	Prediction     string `yaml:"prediction"`
	Summary        string `yaml:"summary"`
	Patch          string `yaml:"patch"`
}

func seedRun(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	if sf.Evaluators <= 0 {
		return fmt.Errorf("seed file must declare at least one evaluator slot")
	}

	if dryRun {
		ui.DryRunMsg("Would create %d evaluator slots and %d review items", sf.Evaluators, len(sf.ReviewItems))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	evaluators := make([]*models.Evaluator, 0, sf.Evaluators)
	for i := 0; i < sf.Evaluators; i++ {
		e := &models.Evaluator{UUID: uuid.NewString()}
		if err := s.CreateEvaluator(ctx, e); err != nil {
			return err
		}
		evaluators = append(evaluators, e)
	}
	ui.Success("Created %d evaluator slots", len(evaluators))

	items := make([]*models.ReviewItem, 0, len(sf.ReviewItems))
	for _, ri := range sf.ReviewItems {
		item := &models.ReviewItem{
			Hash:           ri.Hash,
			ChainOfThought: ri.ChainOfThought,
			GroundTruth:    ri.GroundTruth,
			Prediction:     ri.Prediction,
			Summary:        ri.Summary,
			Patch:          ri.Patch,
		}
		if item.Hash == "" {
			item.Hash = contentHash(ri)
		}
		if err := s.CreateReviewItem(ctx, item); err != nil {
			return err
		}
		items = append(items, item)
	}
	ui.Success("Created %d review items", len(items))

	if seedNoAssign {
		return nil
	}

	for _, e := range evaluators {
		for _, item := range items {
			a := &models.Assignment{EvaluatorID: e.ID, ReviewID: item.ID}
			if err := s.CreateAssignment(ctx, a); err != nil {
				return err
			}
		}
	}
	ui.Success("Assigned %d items to each evaluator", len(items))

	return nil
}

// contentHash derives a stable identifier for a review item that did not
// declare one, so re-running seed against a fresh db yields the same hashes.
func contentHash(ri seedReviewItem) string {
	h := sha256.New()
	for _, s := range []string{ri.ChainOfThought, ri.GroundTruth, ri.Prediction, ri.Summary, ri.Patch} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
