package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stacklok/toolhive-catalog/internal/config"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
)

const shutdownTimeout = 30 * time.Second

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "sync <marketplaces|skills>",
		Short:     "Run one discovery pipeline and publish the result",
		ValidArgs: []string{config.PipelineMarketplaces, config.PipelineSkills},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Long: `Run one discovery pipeline end to end: search, popularity, quality gate, fetch,
validate and reconcile into the persisted catalog set.

With --dry-run every stage runs but nothing is written, and the report shows
what would change.`,
		RunE: runSync,
	}

	cmd.Flags().Int("limit", 0, "Process at most this many repositories (0 means no limit)")
	cmd.Flags().Bool("dry-run", false, "Run every stage except the final write")
	cmd.Flags().Int("threshold", config.DefaultQualityThreshold, "Minimum repository popularity (overrides the configuration)")
	cmd.Flags().String("output", "", "Report format, text or json (default text on a terminal, json otherwise)")

	return cmd
}

// syncOptions maps the command flags to run options
func syncOptions(cmd *cobra.Command) (pkgsync.RunOptions, error) {
	var opts pkgsync.RunOptions
	var err error

	if opts.ItemLimit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.DryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return opts, err
	}
	if cmd.Flags().Changed("threshold") {
		threshold, err := cmd.Flags().GetInt("threshold")
		if err != nil {
			return opts, err
		}
		opts.QualityThreshold = &threshold
	}
	return opts, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	pipeline := args[0]

	opts, err := syncOptions(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		output = defaultOutput(cmd.OutOrStdout())
	}
	if output != "text" && output != "json" {
		return fmt.Errorf("unsupported output format '%s', must be text or json", output)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, config.ResolveSecrets(config.NewEnvViper()), nil)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			slog.Warn("Shutdown incomplete", "error", err)
		}
	}()

	slog.Info("Starting pipeline run",
		"pipeline", pipeline,
		"dry_run", opts.DryRun,
		"limit", opts.ItemLimit)

	report, runErr := rt.coordinator.Trigger(ctx, pipeline, opts)
	if report != nil {
		if err := writeReport(cmd.OutOrStdout(), report, output); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s pipeline failed: %w", pipeline, runErr)
	}
	return nil
}

func writeReport(w io.Writer, report *pkgsync.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(w, report)
}

// printReport writes the human-readable run summary and preview
func printReport(w io.Writer, report *pkgsync.Report) error {
	mode := "write"
	if report.DryRun {
		mode = "dry run"
	}

	summary := [][2]string{
		{"Pipeline", fmt.Sprintf("%s (%s)", report.Pipeline, mode)},
		{"Run", report.RunID},
		{"Discovered", fmt.Sprintf("%d of %d found", report.Discovered, report.TotalFound)},
	}
	if report.ExcludedRepos > 0 {
		summary = append(summary, [2]string{"Excluded repos", strconv.Itoa(report.ExcludedRepos)})
	}
	summary = append(summary,
		[2]string{"Qualified", strconv.Itoa(report.Qualified)},
		[2]string{"Fetched", strconv.Itoa(report.Fetched)},
		[2]string{"Validated", strconv.Itoa(report.Validated)},
		[2]string{"Added / updated / removed", fmt.Sprintf("%d / %d / %d", report.Added, report.Updated, report.Removed)},
		[2]string{"Total", strconv.Itoa(report.Total)},
	)
	if r := report.SkillRepos; r != nil {
		summary = append(summary, [2]string{"Skill repos",
			fmt.Sprintf("%d added, %d updated, %d removed, %d total", r.Added, r.Updated, r.Removed, r.Total)})
	}
	summary = append(summary,
		[2]string{"Failed", strconv.Itoa(report.FailedCount)},
		[2]string{"Duration", (time.Duration(report.DurationMs) * time.Millisecond).String()},
	)
	for _, line := range summary {
		fmt.Fprintf(w, "%-27s %s\n", line[0]+":", line[1])
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, failure := range report.Failures {
			fmt.Fprintf(w, "  - %s\n", failure)
		}
		if more := report.FailedCount - len(report.Failures); more > 0 {
			fmt.Fprintf(w, "  ... and %d more\n", more)
		}
	}

	if err := printPreview(w, "Top records by popularity:", "Record", report.Preview); err != nil {
		return err
	}
	return printPreview(w, "Top skill repositories by popularity:", "Repository", report.RepoPreview)
}

// printPreview renders one preview table, nothing when entries is empty
func printPreview(w io.Writer, title, column string, entries []pkgsync.PreviewEntry) error {
	if len(entries) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\n"+title)
	table := tablewriter.NewWriter(w)
	table.Header("#", column, "Stars", "Description")
	for i, entry := range entries {
		stars := "-"
		if entry.Stars != nil {
			stars = strconv.Itoa(*entry.Stars)
		}
		if err := table.Append([]string{strconv.Itoa(i + 1), entry.Key, stars, entry.Description}); err != nil {
			return fmt.Errorf("failed to render preview: %w", err)
		}
	}
	return table.Render()
}

// defaultOutput picks text for an interactive terminal and json otherwise
func defaultOutput(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}
