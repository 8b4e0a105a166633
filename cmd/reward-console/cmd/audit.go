package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reward-core/internal/workflow/audit"
	"reward-core/pkg/address"
	"reward-core/pkg/config"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse or export the distribution audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		status, _ := cmd.Flags().GetString("status")
		rangeFlag, _ := cmd.Flags().GetString("range")
		projectID, _ := cmd.Flags().GetInt64("project")
		page, _ := cmd.Flags().GetInt("page")
		search, _ := cmd.Flags().GetString("search")
		exportPath, _ := cmd.Flags().GetString("export")

		dr, err := audit.ParseDateRange(rangeFlag)
		if err != nil {
			return err
		}
		v := audit.New(a.Client, config.Global.Audit.PageSize)
		filters := audit.Filters{Status: status, Range: dr, ProjectID: projectID}

		if exportPath != "" {
			v.UseFilters(filters)
			f, err := os.Create(exportPath)
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := v.Export(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bytes to %s\n", n, exportPath)
			return nil
		}

		if err := v.SetFilters(cmd.Context(), filters); err != nil {
			return err
		}
		if page > 1 {
			if err := v.GoTo(cmd.Context(), page); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		records := v.Search(search)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tPROJECT\tSCHOOL\tAMOUNT (G$)\tSTATUS\tTX\tAPPROVED BY")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.ProjectTitle, r.SchoolName, r.Amount.StringFixed(2), r.Status, address.Short(r.TransactionHash), r.ApprovedBy)
		}
		w.Flush()
		if v.Count() == 0 {
			fmt.Fprintln(out, "No records match these filters.")
			return nil
		}
		fmt.Fprintf(out, "Page %d of %d (%d records)\n", v.Page(), v.TotalPages(), v.Count())
		return nil
	},
}

func init() {
	auditCmd.Flags().String("status", "all", "all, pending, processing, completed, failed")
	auditCmd.Flags().String("range", "all", "all, today, week, month")
	auditCmd.Flags().Int64("project", 0, "only records of this project id")
	auditCmd.Flags().Int("page", 1, "page number")
	auditCmd.Flags().String("search", "", "filter the shown page by project, school or tx hash")
	auditCmd.Flags().String("export", "", "write the backend CSV export of the filtered set to this file")
	rootCmd.AddCommand(auditCmd)
}
