package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var cmdTimeout time.Duration

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contracts, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.pipeline.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No contracts stored")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILE\tSELLER\tSCORE\tTIER\tUPLOADED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				s.ID, s.Filename, orDash(s.SellerCompany), s.HealthScore, s.HealthTier, s.Uploaded.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.pipeline.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		printRecord(rec)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.pipeline.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Deleted %s\n", args[0])
		return nil
	},
}

var resellerCmd = &cobra.Command{
	Use:   "reseller <id> <company>",
	Short: "Change the seller of a stored contract and re-score it",
	Long: `Reseller replaces the seller company, reruns the background checks and
re-scores the contract.

Contracts whose document is held by the provider (PDF uploads) are fully
re-assessed against the new seller. Others keep their dimensions; only the
company data and the score are refreshed.

Example:
  covenant reseller 5f1c... "Beta Trading GmbH"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*cmdTimeout)
		defer cancel()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.pipeline.UpdateSeller(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore <id>",
	Short: "Recompute a stored contract's score with the current weights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.pipeline.Rescore(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d/100 (%s, %s)\n", rec.ID, rec.HealthScore, rec.HealthTier, rec.HealthTierLabel)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, showCmd, deleteCmd, resellerCmd, rescoreCmd} {
		c.Flags().DurationVar(&cmdTimeout, "timeout", time.Minute, "timeout")
		rootCmd.AddCommand(c)
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the full record as JSON")
}
