package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/helpdraft/internal/output"
	"github.com/joescharf/helpdraft/internal/tracker"
)

var (
	runPost  bool
	runSince string
	runJQL   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Draft help comments for all matching issues",
	Long: `Search Jira with the configured JQL, draft a help comment for every
issue that carries an "Online Help" trigger comment, and report the
outcome per issue. Drafts are written to the audit directory; posting
back to Jira requires --post.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun()
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPost, "post", false, "Post generated drafts back to Jira")
	runCmd.Flags().StringVar(&runSince, "since", "", `Replace {period} with updated >= "<since>" (YYYY-MM-DD HH:MM)`)
	runCmd.Flags().StringVar(&runJQL, "jql", "", "Override the configured jira.jql")
	rootCmd.AddCommand(runCmd)
}

func runRun() error {
	ctx := context.Background()

	jql := runJQL
	if jql == "" {
		jql = viper.GetString("jira.jql")
	}
	if jql == "" {
		return fmt.Errorf("jira.jql is not configured (set it or pass --jql)")
	}
	jql = tracker.ExpandPeriod(jql, runSince)

	post := runPost
	if post && dryRun {
		ui.DryRunMsg("Would post drafts to Jira; keeping them in %s", viper.GetString("state_dir"))
		post = false
	}

	p, err := buildPipeline(ctx, post)
	if err != nil {
		return err
	}

	ui.VerboseLog("JQL: %s", jql)
	report, err := p.Run(ctx, jql)
	if err != nil {
		return err
	}

	if len(report.Results) == 0 {
		ui.Info("No issues matched.")
		return nil
	}

	table := ui.Table([]string{"Issue", "Status", "Comments", "Refs", "Detail"})
	for _, res := range report.Results {
		detail := res.SkipReason
		if res.PostStatus != 0 {
			detail = fmt.Sprintf("HTTP %d", res.PostStatus)
		}
		if res.Error != "" {
			detail = res.Error
		}
		_ = table.Append([]string{
			res.IssueKey,
			output.StatusColor(string(res.Status)),
			fmt.Sprintf("%d", res.Selected),
			fmt.Sprintf("%d", res.References),
			detail,
		})
	}
	_ = table.Render()

	posted, drafted, skipped, failed := report.Counts()
	summary := fmt.Sprintf("%d posted, %d drafted, %d skipped, %d failed", posted, drafted, skipped, failed)
	if failed > 0 {
		ui.Warning("Run %s finished: %s", report.RunID, summary)
	} else {
		ui.Success("Run %s finished: %s", report.RunID, summary)
	}
	return nil
}
