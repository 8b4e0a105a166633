package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reward-core/internal/app"
	"reward-core/internal/model"
	"reward-core/internal/workflow/selector"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List completed projects eligible for rewards",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		search, _ := cmd.Flags().GetString("search")
		status, _ := cmd.Flags().GetString("status")

		sel := selector.New(a.Client)
		if err := sel.Load(cmd.Context()); err != nil {
			return fmt.Errorf("could not load projects (run the command again to retry): %w", err)
		}
		printProjects(cmd.OutOrStdout(), sel.Visible(selector.Filter{Search: search, Status: status}))
		return nil
	},
}

func printProjects(out io.Writer, projects []model.RewardProject) {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects match.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSCHOOLS\tPARTICIPANTS\tEST. COST (G$)\tREWARD STATUS")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", p.ID, p.Title, len(p.Schools()), p.EstimatedParticipants, p.EstimatedTotalCost.StringFixed(2), p.RewardStatus)
	}
	w.Flush()
}

// selectProject loads the eligible projects and selects arg.
func selectProject(ctx context.Context, a *app.App, arg string) (model.RewardProject, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return model.RewardProject{}, fmt.Errorf("project id must be a number: %q", arg)
	}
	sel := selector.New(a.Client)
	if err := sel.Load(ctx); err != nil {
		return model.RewardProject{}, err
	}
	return sel.Select(id)
}

func init() {
	projectsCmd.Flags().String("search", "", "case-insensitive title filter")
	projectsCmd.Flags().String("status", selector.StatusAll, "reward status: all, pending, ready, completed")
	rootCmd.AddCommand(projectsCmd)
}
