package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/answer"
	"github.com/Yates-Labs/carebridge/internal/evidence"
	"github.com/Yates-Labs/carebridge/internal/orchestrator"
	"github.com/Yates-Labs/carebridge/internal/patient"
	"github.com/spf13/cobra"
)

var (
	topK      int
	threshold float64
	noWeb     bool
	verbose   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [patient-id] [question]",
	Short: "Ask a clinical question for a patient",
	Long: `Ask a clinical question on behalf of a discharged patient.

This command:
1. Looks up the patient record and builds its summary
2. Retrieves the closest passages from the reference corpus
3. Consults web search when the best passage scores below the threshold
4. Generates a cited answer (or lists the excerpts when no model is configured)

Environment variables:
  OPENAI_API_KEY     - enables generative answers
  CORPUS_PATH        - corpus JSON file (default: data/reference_embeddings.json)
  PATIENT_STORE      - dir (default) or sqlite

Examples:
  carebridge ask P001 "Can I eat bananas?"
  carebridge ask p012 "Is ankle swelling normal?" --verbose
  carebridge ask P003 "How much water should I drink?" --no-web`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&topK, "topk", 0, "Number of reference passages to retrieve (default $RAG_TOP_K or 3)")
	askCmd.Flags().Float64Var(&threshold, "threshold", 0, "Confidence below which web search is used (default $RAG_CONFIDENCE_THRESHOLD or 0.14)")
	askCmd.Flags().BoolVar(&noWeb, "no-web", false, "Never consult web search")
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "Show confidence and the answer mode")
}

// applyAskFlags overrides cfg with the flags set on the command line. An
// explicit --threshold 0 is honored rather than read as unset.
func applyAskFlags(cmd *cobra.Command, cfg *orchestrator.Config) error {
	flags := cmd.Flags()
	if flags.Changed("topk") {
		if topK <= 0 {
			return fmt.Errorf("--topk must be positive")
		}
		cfg.RAG.TopK = topK
	}
	if flags.Changed("threshold") {
		if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
			return fmt.Errorf("--threshold must be a finite number")
		}
		cfg.RAG.ConfidenceThreshold = threshold
	}
	if noWeb {
		cfg.WebSearch.Enabled = false
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	patientID := strings.ToUpper(strings.TrimSpace(args[0]))
	question := args[1]
	ctx := context.Background()

	logger, flush, err := newLogger()
	if err != nil {
		return err
	}
	defer flush()

	patients, err := patient.Open(patient.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open patient store: %w", err)
	}
	defer patients.Close()

	rec, err := patients.FindByID(ctx, patientID)
	if errors.Is(err, patient.ErrNotFound) {
		return fmt.Errorf("%s no patient with ID %s", warningStyle.Render("Error:"), patientID)
	}
	if err != nil {
		return fmt.Errorf("patient lookup failed: %w", err)
	}

	cfg := orchestrator.DefaultConfig()
	if err := applyAskFlags(cmd, &cfg); err != nil {
		return err
	}

	pipeline, _, err := orchestrator.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s failed to create clinical pipeline: %w", warningStyle.Render("Error:"), err)
	}
	defer pipeline.Close()

	// Print patient and question
	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Patient %s:", rec.PatientID)))
	fmt.Println(mutedStyle.Render(rec.Summary()))
	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(accentStyle.Render(question))
	fmt.Println()

	ans := pipeline.AnswerQuestion(ctx, rec.Summary(), question, rec.PatientID)

	if verbose {
		mode := "generated"
		if d, ok := ans.Outcome.(answer.Degraded); ok {
			mode = "degraded (" + string(d.Reason) + ")"
		}
		fmt.Println(mutedStyle.Render(fmt.Sprintf("→ confidence %.4f, web search %v, answer %s",
			ans.Confidence, ans.UsedWeb, mode)))
		fmt.Println()
	}

	// Print answer
	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	fmt.Println(bodyStyle.Render(strings.TrimSpace(ans.Text)))
	fmt.Println()

	if len(ans.Citations) > 0 {
		fmt.Println(headerStyle.Render("Sources:"))
		for i, c := range ans.Citations {
			fmt.Println(formatCitation(i+1, c))
		}
		fmt.Println()
	}

	return nil
}

func formatCitation(n int, c evidence.Citation) string {
	label := mutedStyle.Render(fmt.Sprintf("[%d]", n))
	if c.Web {
		heading := evidence.Web{Title: c.Title, URL: c.URL}.Heading()
		if heading == "" {
			heading = "web result"
		}
		return fmt.Sprintf("%s %s %s", label, successStyle.Render("web"), accentStyle.Render(heading))
	}
	chunk := 0
	if c.ChunkID != nil {
		chunk = *c.ChunkID
	}
	return fmt.Sprintf("%s %s %s", label,
		successStyle.Render(fmt.Sprintf("chunk %d", chunk)),
		mutedStyle.Render(fmt.Sprintf("score %.4f", c.Score)))
}
