package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reward-core/internal/model"
	"reward-core/internal/workflow/preview"
	"reward-core/pkg/address"
)

var previewCmd = &cobra.Command{
	Use:   "preview <project-id>",
	Short: "Show the backend-computed distribution preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		project, err := selectProject(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}
		pv := preview.New(a.Client, project.ID)
		current, err := pv.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		printPreview(cmd.OutOrStdout(), current)

		if path, _ := cmd.Flags().GetString("csv"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := pv.WriteCSV(f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preview written to %s\n", path)
		}
		return nil
	},
}

func printPreview(out io.Writer, pv *model.DistributionPreview) {
	s := pv.Summary
	fmt.Fprintf(out, "%s\n", pv.ProjectTitle)
	fmt.Fprintf(out, "Schools: %d  Participants: %d  Total: %s G$  Wallets: %d ready / %d missing\n",
		s.TotalSchools, s.TotalParticipants, s.TotalAmount.StringFixed(2), s.SchoolsWithWallets, s.SchoolsMissingWallets)
	if pool := pv.PoolInfo; pool != nil {
		fmt.Fprintf(out, "Pool balance: %s G$  Monthly remaining: %s / %s G$\n",
			pool.Balance.StringFixed(2), pool.RemainingMonthly().StringFixed(2), pool.MonthlyLimit.StringFixed(2))
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCHOOL\tPARTICIPANTS\tAMOUNT (G$)\tWALLET\tISSUES")
	for _, d := range pv.Distributions {
		wallet := "missing"
		if d.WalletAddress != "" {
			wallet = address.Short(d.WalletAddress)
		}
		issues := ""
		for i, msg := range pv.ErrorsFor(d.SchoolID) {
			if i > 0 {
				issues += "; "
			}
			issues += msg
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", d.SchoolName, d.Participants, d.RewardAmount.StringFixed(2), wallet, issues)
	}
	w.Flush()

	// 不属于任何学校的错误 (奖池等)
	for _, e := range pv.ErrorsFor(0) {
		fmt.Fprintf(out, "! %s\n", e)
	}
	if pv.Ready() {
		fmt.Fprintln(out, "Ready for distribution.")
	} else {
		fmt.Fprintln(out, "Not ready: resolve the issues above, then refresh.")
	}
}

func init() {
	previewCmd.Flags().String("csv", "", "also write the preview to this CSV file")
	rootCmd.AddCommand(previewCmd)
}
