package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/helpdraft/internal/models"
)

var (
	draftPost  bool
	draftReply bool
)

var draftCmd = &cobra.Command{
	Use:   "draft <issue-key>",
	Short: "Draft a help comment for one issue",
	Long: `Run the drafting pipeline for a single Jira issue and print the
resulting comment in wiki markup. Posting back to Jira requires --post.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftRun(args[0])
	},
}

func init() {
	draftCmd.Flags().BoolVar(&draftPost, "post", false, "Post the draft back to Jira")
	draftCmd.Flags().BoolVar(&draftReply, "reply", true, "Post as a reply to the trigger comment (--reply=false posts top-level)")
	_ = viper.BindPFlag("jira.reply_to_trigger", draftCmd.Flags().Lookup("reply"))
	rootCmd.AddCommand(draftCmd)
}

func draftRun(key string) error {
	ctx := context.Background()

	post := draftPost
	if post && dryRun {
		ui.DryRunMsg("Would post the draft to %s", key)
		post = false
	}

	p, err := buildPipeline(ctx, post)
	if err != nil {
		return err
	}

	res, rendered := p.DraftByKey(ctx, key)
	if res.Status == models.ResultFailed {
		return fmt.Errorf("draft %s: %s", key, res.Error)
	}
	if res.Status == models.ResultSkipped {
		ui.Info("Skipped %s: %s", key, res.SkipReason)
		return nil
	}

	fmt.Fprintln(ui.Out, rendered.PlainText)
	fmt.Fprintln(ui.Out)
	ui.Info("%s: %d comments selected, %d references", key, res.Selected, res.References)

	switch res.Status {
	case models.ResultPosted:
		ui.Success("Posted to %s (HTTP %d)", key, res.PostStatus)
	case models.ResultDrafted:
		if res.Error != "" {
			ui.Warning("Draft kept locally, post failed: %s", res.Error)
		}
	}
	return nil
}
