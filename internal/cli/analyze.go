package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/spf13/cobra"
)

var (
	analyzeTimeout time.Duration
	analyzeJSON    string
)

// analyzeCmd assesses a single contract file
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Assess a single contract and store the result",
	Long: `Analyze reads one contract (.pdf, .docx, .txt or .md) and:
- Identifies the document type and the seller
- Runs background checks on the seller
- Rates the four health dimensions with the configured model
- Scores the contract and stores the record

A file whose bytes were analyzed before is not assessed again; the stored
record is shown instead. An http(s) URL is downloaded first, honoring
robots.txt unless fetch.respect_robots is off.

Example:
  covenant analyze supply-agreement.pdf
  covenant analyze https://example.com/terms-of-sale.pdf
  covenant analyze nda.docx --json nda.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall timeout")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "also write the record as JSON to this path")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Provider:  %s\n\n", a.cfg.LLM.Provider)
	}

	var res *model.IngestResult
	if isURL(args[0]) {
		res, err = a.pipeline.IngestURL(ctx, args[0])
	} else {
		res, err = a.pipeline.IngestFile(ctx, args[0])
	}
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if res.Duplicate {
		fmt.Fprintf(os.Stderr, "= Already analyzed as %s\n\n", res.Record.ID)
	}
	printRecord(res.Record)

	if analyzeJSON != "" {
		if err := writeJSONFile(analyzeJSON, res.Record); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", analyzeJSON)
	}
	return nil
}

// printRecord renders a record for humans
func printRecord(rec *model.ContractRecord) {
	b := rec.ScoreBreakdown

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", rec.Filename)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  Contract ID:    %s\n", rec.ID)
	fmt.Printf("  Document type:  %s\n", orDash(rec.DocumentType))
	fmt.Printf("  Seller:         %s\n", orDash(rec.SellerCompany))
	fmt.Printf("  Health score:   %d/100 (%s, %s)\n", rec.HealthScore, rec.HealthTier, rec.HealthTierLabel)
	fmt.Println()
	dims := []struct {
		label string
		value int
		note  string
	}{
		{"Destruction risk (mad)", rec.Dimensions.DestructionRisk, rec.DimensionExplanations.DestructionRisk},
		{"Mutual advantage (mao)", rec.Dimensions.MutualAdvantage, rec.DimensionExplanations.MutualAdvantage},
		{"Attrition depth (maa)", rec.Dimensions.AttritionDepth, rec.DimensionExplanations.AttritionDepth},
		{"Strategic potential (map)", rec.Dimensions.StrategicPotential, rec.DimensionExplanations.StrategicPotential},
	}
	for _, d := range dims {
		fmt.Printf("  %-26s %3d  %s\n", d.label+":", d.value, d.note)
	}
	fmt.Println()
	fmt.Printf("  Safety %.1f + value %.1f = %.1f, bonus %d\n", b.SafetyScore, b.ValueScore, b.RawScore, b.BonusPoints)
	if b.CircuitBreaker {
		fmt.Println("  ⚠️  Destruction risk cap applied")
	}
	if rec.Recommendation != "" {
		fmt.Println()
		fmt.Printf("  Recommendation: %s\n", rec.Recommendation)
	}
	fmt.Println()
}

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
