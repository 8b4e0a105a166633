package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"reward-core/internal/app"
	"reward-core/internal/model"
	"reward-core/internal/workflow/monitor"
	"reward-core/pkg/address"
	"reward-core/pkg/config"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <distribution-id>",
	Short: "Follow a distribution until every transaction settles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		noAuto, _ := cmd.Flags().GetBool("no-auto-refresh")
		csvPath, _ := cmd.Flags().GetString("csv")
		return watchDistribution(cmd.Context(), cmd.OutOrStdout(), a, model.ID(args[0]), !noAuto && config.Global.Monitor.AutoRefresh, csvPath)
	},
}

// watchDistribution prints progress until the distribution settles, or once when autoRefresh is off.
func watchDistribution(ctx context.Context, out io.Writer, a *app.App, id model.ID, autoRefresh bool, csvPath string) error {
	m := monitor.New(a.Client, id, monitor.Options{
		Interval:    config.Global.Monitor.PollInterval,
		AutoRefresh: autoRefresh,
		Journal:     a.Journal,
	})
	defer m.Close()

	if err := m.Start(ctx); err != nil && m.Status() == nil && !autoRefresh {
		return err
	}

	if autoRefresh {
		printed := ""
		progress := time.NewTicker(time.Second)
		defer progress.Stop()
	wait:
		for {
			if st := m.Status(); st != nil {
				line := fmt.Sprintf("%s  %5.1f%%  completed %d  processing %d  pending %d  failed %d",
					st.OverallStatus, m.Progress(), st.CompletedTransactions, st.ProcessingTransactions, st.PendingTransactions, st.FailedTransactions)
				if line != printed {
					fmt.Fprintln(out, line)
					printed = line
				}
			} else if err := m.Err(); err != nil {
				fmt.Fprintf(out, "status unavailable: %v (retrying)\n", err)
			}
			select {
			case <-m.Finished():
				break wait
			case <-ctx.Done():
				return ctx.Err()
			case <-progress.C:
			}
		}
	}

	st := m.Status()
	if st == nil {
		return m.Err()
	}
	printTransactions(out, st)

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := m.WriteCSV(f); err != nil {
			return err
		}
		fmt.Fprintf(out, "Transactions written to %s\n", csvPath)
	}
	return nil
}

func printTransactions(out io.Writer, st *model.DistributionStatus) {
	fmt.Fprintf(out, "Distribution %s (%s): %s, %.1f%% complete\n", st.DistributionID, st.ProjectTitle, st.OverallStatus, st.ProgressPercent())
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCHOOL\tAMOUNT (G$)\tSTATUS\tTX\tRETRIES\tERROR")
	for _, tx := range st.Transactions {
		hash := "-"
		if tx.TransactionHash != "" {
			hash = address.Short(tx.TransactionHash)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", tx.SchoolName, tx.Amount.StringFixed(2), statusIcon(tx.Status), hash, tx.RetryCount, tx.ErrorMessage)
	}
	w.Flush()
}

func statusIcon(s model.TxStatus) string {
	switch s {
	case model.StatusCompleted:
		return "✔ completed"
	case model.StatusFailed:
		return "✘ failed"
	case model.StatusProcessing:
		return "… processing"
	}
	return "○ " + string(s)
}

func init() {
	monitorCmd.Flags().Bool("no-auto-refresh", false, "fetch the status once instead of polling")
	monitorCmd.Flags().String("csv", "", "write the transactions to this CSV file")
	rootCmd.AddCommand(monitorCmd)
}
