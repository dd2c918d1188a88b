package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ppiankov/covenant/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Assess many contracts in parallel",
	Long: `Batch assesses several contracts concurrently:
- Arguments may be files, directories (non-recursive) or @list files
  holding one path per line
- Files are processed by a fixed worker pool
- Identical documents are assessed once, later copies report the
  stored record as a duplicate

Example:
  covenant batch contracts/
  covenant batch a.pdf b.docx --concurrency 2
  covenant batch @inbox.txt --timeout 30m`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths, err := worker.ExpandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no contract files found in %v", args)
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Covenant Batch Assessment\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:        %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Provider:     %s\n", a.cfg.LLM.Provider)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(a.pipeline, concurrency)
	outcomes := processor.ProcessFiles(ctx, paths)

	for _, o := range outcomes {
		switch {
		case o.Error != nil:
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Path, o.Error)
		case o.Result.Duplicate:
			fmt.Fprintf(os.Stderr, "= %s: duplicate of %s\n", o.Path, o.Result.Record.ID)
		default:
			rec := o.Result.Record
			fmt.Fprintf(os.Stderr, "✓ %s: %d/100 (%s) %s\n", o.Path, rec.HealthScore, rec.HealthTier, rec.ID)
		}
	}

	sum := worker.Summarize(outcomes)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d files\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Assessed:   %d\n", sum.Created)
	fmt.Fprintf(os.Stderr, "  Duplicates: %d\n", sum.Duplicate)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", sum.Failed)
	fmt.Fprintf(os.Stderr, "\n")

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.Failed, len(outcomes))
	}
	return nil
}
