package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
	"github.com/cuongbtq/content-i18n/internal/provider"
)

// reasonCLI is the wake-up reason published by operator commands
const reasonCLI = "cli"

func newSyncCmd(c *cli) *cobra.Command {
	var languageID int64

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scan content and queue translation jobs",
		Long: `Scan every registered content type, compare source hashes with stored
translations and queue jobs for new and changed fields.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := c.deps.Pipeline.Run(cmd.Context(), pipeline.Options{LanguageID: languageID})
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			for _, scanErr := range summary.ScanErrors {
				logWarning("%s", scanErr)
			}
			logSuccess("queued %d new and %d refreshed jobs", summary.JobsCreated, summary.JobsUpdated)
			return nil
		},
	}

	cmd.Flags().Int64Var(&languageID, "language", 0, "Only sync this language ID")
	return cmd
}

func newDetectCmd(c *cli) *cobra.Command {
	var languageID int64

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List pending changes without queueing jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			preview, err := c.deps.Pipeline.Detect(cmd.Context(), pipeline.Options{LanguageID: languageID})
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), preview)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANGUAGE\tTYPE\tID\tFIELD\tCHANGE")
			for _, ch := range preview.Changes {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ch.LanguageID, ch.ContentType, ch.ContentID, ch.Field, ch.Change)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), &preview.Summary)
			return nil
		},
	}

	cmd.Flags().Int64Var(&languageID, "language", 0, "Only detect changes for this language ID")
	return cmd
}

func newTranslateCmd(c *cli) *cobra.Command {
	var to, from string

	cmd := &cobra.Command{
		Use:   "translate --to CODE TEXT...",
		Short: "Translate ad-hoc text with the configured backends",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			target, err := c.deps.Languages.ByCode(ctx, to)
			if err != nil {
				return fmt.Errorf("target language %q: %w", to, err)
			}
			var source domain.Language
			if from == "" {
				source, err = c.deps.Languages.Source(ctx)
			} else {
				source, err = c.deps.Languages.ByCode(ctx, from)
			}
			if err != nil {
				return fmt.Errorf("source language: %w", err)
			}

			reqs := make([]provider.Request, len(args))
			for i, text := range args {
				reqs[i] = provider.Request{Text: text, Source: source, Target: target}
			}

			items := c.deps.Provider.TranslateBatch(ctx, reqs, func(completed, total int) {
				fmt.Fprintf(os.Stderr, "\r[%d/%d] translating to %s", completed, total, target.Code)
				if completed == total {
					fmt.Fprintln(os.Stderr)
				}
			})

			failed := 0
			for _, item := range items {
				if item.Err != nil {
					failed++
					logError("%q: %v", args[item.Index], item.Err)
				}
			}

			if c.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), items); err != nil {
					return err
				}
			} else {
				for _, item := range items {
					if item.Err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%s)\n", item.Result.Text, item.Result.Provider)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d texts failed", failed, len(items))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target language code")
	cmd.Flags().StringVar(&from, "from", "", "Source language code (defaults to the site language)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newLanguagesCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List configured languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				langs []domain.Language
				err   error
			)
			if all {
				langs, err = c.deps.Languages.All(ctx)
			} else {
				langs, err = c.deps.Languages.Active(ctx)
			}
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), langs)
			}

			settings, err := c.deps.Provider.Settings(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tNAME\tACTIVE\tDEFAULT\tMT")
			for _, lang := range langs {
				_, mtOK := settings.Capabilities.Lookup(lang.Code)
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					lang.ID, lang.Code, lang.Name,
					yesNo(lang.IsActive), yesNo(lang.IsDefault), yesNo(mtOK))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive languages")
	return cmd
}

func newRetryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "retry JOB_ID",
		Short: "Requeue a failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			job, err := c.deps.Store.RetryFailedJob(ctx, args[0])
			if err != nil {
				return err
			}
			if err := c.deps.Notifier.Notify(ctx, domain.JobMessage{Reason: reasonCLI, Jobs: 1}); err != nil {
				logWarning("failed to notify workers: %v", err)
			}

			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), job)
			}
			logSuccess("job %s is %s again", job.JobID, job.Status)
			return nil
		},
	}
}

func printSummary(w io.Writer, s *pipeline.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "languages:\t%v\n", s.Languages)
	fmt.Fprintf(tw, "scanned:\t%d\n", s.Scanned)
	fmt.Fprintf(tw, "new / changed / unchanged:\t%d / %d / %d\n", s.New, s.Changed, s.Unchanged)
	fmt.Fprintf(tw, "jobs created / updated:\t%d / %d\n", s.JobsCreated, s.JobsUpdated)
	fmt.Fprintf(tw, "in flight:\t%d\n", s.InFlight)
	fmt.Fprintf(tw, "held after failure:\t%d\n", s.HeldFailed)
	fmt.Fprintf(tw, "marked outdated:\t%d\n", s.MarkedOutdated)
	fmt.Fprintf(tw, "duration:\t%s\n", s.Duration)
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
