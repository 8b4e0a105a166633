package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reward-core/internal/app"
	"reward-core/internal/model"
	"reward-core/internal/workflow/confirm"
	"reward-core/internal/workflow/preview"
	"reward-core/internal/workflow/wallets"
	"reward-core/pkg/config"
	"reward-core/pkg/errno"
)

var errAborted = errors.New("distribution aborted, nothing was sent")

var distributeCmd = &cobra.Command{
	Use:   "distribute <project-id>",
	Short: "Walk a project through wallets, preview, confirmation and execution",
	Long: `Interactive distribution:
  1. every school needs a validated wallet (you are asked for missing ones)
  2. the backend preview must have no validation errors
  3. type "EXECUTE DISTRIBUTION FOR <project title>" and review the final summary
  4. execute once, then follow the transactions until they settle`,
	Args: cobra.ExactArgs(1),
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
		p := newPrompter(cmd)

		// 1. 钱包
		if err := collectWallets(cmd, a, p, project); err != nil {
			return err
		}

		// 2. 预览
		current, err := reviewPreview(cmd, a, p, project)
		if err != nil {
			return err
		}

		// 3. 确认 + 执行
		id, err := confirmAndExecute(cmd, a, p, project, current)
		if err != nil {
			return err
		}

		// 4. 监控
		fmt.Fprintln(cmd.OutOrStdout(), "Monitoring transactions (Ctrl-C stops watching, the distribution continues)...")
		return watchDistribution(cmd.Context(), cmd.OutOrStdout(), a, id, true, "")
	},
}

func collectWallets(cmd *cobra.Command, a *app.App, p *prompter, project model.RewardProject) error {
	out := cmd.OutOrStdout()
	c := wallets.New(a.Client, project, a.Journal)
	if err := c.Load(cmd.Context()); err != nil {
		return err
	}
	printWallets(out, c)

	for _, school := range c.Missing() {
		if c.Status(school.ID) == model.WalletPending {
			fmt.Fprintf(out, "%s has a wallet waiting for validation.\n", school.Name)
		}
		if err := c.Edit(school.ID); err != nil {
			return err
		}
		for {
			answer, err := p.Ask(fmt.Sprintf("Wallet address for %s (empty to skip): ", school.Name))
			if err != nil {
				return err
			}
			if strings.TrimSpace(answer) == "" {
				c.Cancel(school.ID)
				break
			}
			if err := c.SetDraft(school.ID, answer); err != nil {
				return err
			}
			if err := c.Save(cmd.Context(), school.ID); err != nil {
				fmt.Fprintf(out, "  %v\n", err)
				continue
			}
			fmt.Fprintf(out, "  saved, %s\n", c.Status(school.ID))
			break
		}
	}

	if !c.AllReady() {
		printWallets(out, c)
		return errno.ErrNotReady.WithMessage("Every school needs a validated wallet before the preview")
	}
	return nil
}

func reviewPreview(cmd *cobra.Command, a *app.App, p *prompter, project model.RewardProject) (*model.DistributionPreview, error) {
	out := cmd.OutOrStdout()
	pv := preview.New(a.Client, project.ID)
	for {
		current, err := pv.Refresh(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "Could not load the preview: %v\n", err)
		} else {
			printPreview(out, current)
			if pv.Ready() {
				return current, nil
			}
		}
		choice, err := p.Choose("[r]efresh or [q]uit? ", "refresh", "quit")
		if err != nil {
			return nil, err
		}
		if choice == "quit" {
			return nil, errAborted
		}
	}
}

func confirmAndExecute(cmd *cobra.Command, a *app.App, p *prompter, project model.RewardProject, current *model.DistributionPreview) (model.ID, error) {
	out := cmd.OutOrStdout()
	c, err := confirm.New(a.Client, project, current, confirm.Options{
		Locker:  a.Locker,
		LockTTL: config.Global.Lock.TTL,
		Journal: a.Journal,
	})
	if err != nil {
		return "", err
	}
	defer c.Close()

	for {
		switch c.Step() {
		case confirm.StepConfirm:
			notes, err := p.Ask(fmt.Sprintf("Admin notes [%s]: ", c.Notes()))
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(notes) != "" {
				c.SetNotes(notes)
			}
			fmt.Fprintf(out, "Type %q to continue, or \"cancel\":\n", c.Phrase())
			typed, err := p.Ask("> ")
			if err != nil {
				return "", err
			}
			if strings.EqualFold(strings.TrimSpace(typed), "cancel") {
				_ = c.Cancel()
				return "", errAborted
			}
			c.SetConfirmText(typed)
			if err := c.Proceed(); err != nil {
				fmt.Fprintf(out, "  %v\n", err)
			}

		case confirm.StepFinal:
			pv := c.Preview()
			fmt.Fprintf(out, "\nProject:    %s\nTotal:      %s G$\nRecipients: %d schools\nNotes:      %s\n",
				project.Title, pv.Summary.TotalAmount.StringFixed(2), len(pv.Distributions), c.Notes())
			fmt.Fprintln(out, "This sends blockchain transactions and cannot be undone.")
			choice, err := p.Choose("[e]xecute, [b]ack or [c]ancel? ", "execute", "back", "cancel")
			if err != nil {
				return "", err
			}
			switch choice {
			case "back":
				_ = c.Back()
			case "cancel":
				_ = c.Cancel()
				return "", errAborted
			case "execute":
				result, err := c.Execute(cmd.Context())
				if errors.Is(err, errno.ErrExecutionLocked) {
					fmt.Fprintf(out, "  %v\n", err)
					continue
				}
				if err != nil {
					// 停留在 executing: 不自动重试，需要重新开始
					return "", fmt.Errorf("distribution failed, start over after checking the audit trail: %w", err)
				}
				fmt.Fprintf(out, "\n%s\nDistribution ID: %s\n", result.Message, result.DistributionID)
				for _, tx := range result.Transactions {
					fmt.Fprintf(out, "  %-32s %12s G$  %s\n", tx.SchoolName, tx.Amount.StringFixed(2), tx.ExplorerURL)
				}
				return result.DistributionID, nil
			}

		default:
			return "", errno.ErrIllegalTransition
		}
	}
}

func init() {
	rootCmd.AddCommand(distributeCmd)
}
