package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/report"
	"github.com/retailtools/catalogcheck/internal/session"
	"github.com/retailtools/catalogcheck/internal/validator"
)

type validateFlags struct {
	input        string
	out          string
	cookieHeader string
	delayMS      int
	headless     bool
	useAPI       bool
	onlyNot      bool
	noProgress   bool
}

func newValidateCmd() *cobra.Command {
	flags := &validateFlags{}
	cmd := &cobra.Command{
		Use:   "validate [sku ...]",
		Short: "Validates a batch of SKUs against the site's catalog taxonomy",
		Long: `Reads product identifiers from arguments, a file or stdin (one per
line, blanks and #-comments skipped) and checks each one against the
configured retail site. Prints a table and optionally writes a CSV.

The command always exits 0 when the batch ran: a product that is not
cataloged is a finding, not a failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "in", "i", "", "file with one SKU per line (default: args or stdin)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "write the full report as CSV to this path")
	cmd.Flags().StringVar(&flags.cookieHeader, "cookies", "", "cookie header to attach to every request (k1=v1; k2=v2)")
	cmd.Flags().IntVar(&flags.delayMS, "delay", -1, "politeness delay between SKUs in ms (-1: use config)")
	cmd.Flags().BoolVar(&flags.headless, "headless", true, "fall back to a headless browser for JS-only pages")
	cmd.Flags().BoolVar(&flags.useAPI, "use-api", true, "consult the catalog lookup API when scraping misses")
	cmd.Flags().BoolVar(&flags.onlyNot, "only-not-cataloged", false, "print only SKUs that are NOT cataloged")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string, flags *validateFlags) error {
	cfg, logger, err := initRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	skus, err := readSKUs(args, flags.input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(skus) == 0 {
		return fmt.Errorf("no identifiers to validate")
	}

	cookies := session.FromEnv()
	cookies.Merge(session.ParseCookieHeader(flags.cookieHeader))

	delay := cfg.Delay()
	if flags.delayMS >= 0 {
		delay = time.Duration(flags.delayMS) * time.Millisecond
	}

	runner, cleanup, err := buildRunner(cfg, logger, pipelineParams{
		cookies:  cookies,
		delay:    delay,
		headless: flags.headless && cfg.Headless.Enabled,
		useAPI:   flags.useAPI,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := report.New()
	hook := func(res validator.Result) { rep.Add(res) }

	var progress *mpb.Progress
	if !flags.noProgress {
		progress = mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(52))
		bar := progress.New(int64(len(skus)),
			mpb.BarStyle().Rbound("]"),
			mpb.PrependDecorators(decor.Name("validating  ")),
			mpb.AppendDecorators(
				decor.CountersNoUnit("%d/%d"),
				decor.Percentage(decor.WCSyncSpace),
			),
		)
		inner := hook
		hook = func(res validator.Result) {
			inner(res)
			bar.Increment()
		}
	}

	_, runErr := runner.Run(ctx, skus, hook)
	if progress != nil {
		progress.Wait()
	}
	if runErr != nil {
		logger.Warn("batch interrupted", zap.Error(runErr))
	}

	rep.RenderTable(cmd.OutOrStdout(), flags.onlyNot)

	if flags.out != "" {
		f, err := os.Create(flags.out)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		if err := rep.WriteCSV(f); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", flags.out)
	}
	return nil
}

// readSKUs collects identifiers from args, a file, or stdin, in that
// order of preference. Blank lines and #-comments are skipped.
func readSKUs(args []string, path string, stdin io.Reader) ([]string, error) {
	var src io.Reader
	switch {
	case len(args) > 0:
		return compactLines(strings.Join(args, "\n")), nil
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	default:
		src = stdin
	}

	var lines []string
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}
	return compactLines(strings.Join(lines, "\n")), nil
}

func compactLines(blob string) []string {
	var out []string
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
