package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reward-core/internal/workflow/wallets"
	"reward-core/pkg/address"
)

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "Inspect and submit school payout addresses",
}

var walletsListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "Show the wallet status of every school in a project",
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
		c := wallets.New(a.Client, project, a.Journal)
		if err := c.Load(cmd.Context()); err != nil {
			return err
		}
		printWallets(cmd.OutOrStdout(), c)
		return nil
	},
}

var walletsSetCmd = &cobra.Command{
	Use:   "set <project-id> <school-id> <address>",
	Short: "Submit the payout address of one school",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		schoolID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("school id must be a number: %q", args[1])
		}
		project, err := selectProject(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}
		c := wallets.New(a.Client, project, a.Journal)
		if err := c.SetDraft(schoolID, args[2]); err != nil {
			return err
		}
		if err := c.Save(cmd.Context(), schoolID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved. School %d is %s.\n", schoolID, c.Status(schoolID))
		return nil
	},
}

func printWallets(out io.Writer, c *wallets.Collector) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCHOOL ID\tSCHOOL\tSTATUS\tWALLET")
	for _, row := range c.Rows() {
		addr := "-"
		if row.Wallet != nil && row.Wallet.WalletAddress != "" {
			addr = address.Checksum(row.Wallet.WalletAddress)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.School.ID, row.School.Name, row.Status, addr)
	}
	w.Flush()
	if c.AllReady() {
		fmt.Fprintln(out, "All wallets ready.")
	} else {
		fmt.Fprintf(out, "%d school(s) still need a validated wallet.\n", len(c.Missing()))
	}
}

func init() {
	walletsCmd.AddCommand(walletsListCmd, walletsSetCmd)
	rootCmd.AddCommand(walletsCmd)
}
