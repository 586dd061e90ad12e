package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/policyaudit/internal/audit"
	"github.com/dshills/policyaudit/internal/config"
	"github.com/dshills/policyaudit/internal/dataset"
	"github.com/dshills/policyaudit/internal/logging"
	"github.com/dshills/policyaudit/internal/patch"
	"github.com/dshills/policyaudit/internal/profile"
	"github.com/dshills/policyaudit/internal/render"
	"github.com/dshills/policyaudit/internal/review"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/schema/validate"
	"github.com/dshills/policyaudit/internal/store"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitGeneric = 1
	exitFailOn  = 2
	exitInput   = 3
	exitOutput  = 4
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// checkFlags holds the parsed flags for the check command.
type checkFlags struct {
	configPath        string
	format            string
	out               string
	profileName       string
	severityThreshold string
	failOn            string
	sqlitePath        string
	patchOut          string
	asOf              string
	receiptCutoff     string
	parallelism       int
	verbose           bool
}

// renderFlags holds the parsed flags for the render command.
type renderFlags struct {
	format string
	out    string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(exitGeneric)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "policyaudit",
		Short:   "Audit insurance policy exports for data-quality anomalies",
		Long:    "PolicyAudit cleans the contract, receipt, claim and tariff exports of a pet insurance portfolio and reports every inconsistency it finds.",
		Version: version,
	}

	var flags checkFlags
	checkCmd := &cobra.Command{
		Use:   "check <data-dir>",
		Short: "Audit a directory of CSV exports and produce a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), args[0], flags)
		},
	}
	f := checkCmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&flags.format, "format", "json", "Output format: "+strings.Join(render.Formats, ", "))
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.profileName, "profile", "", "Column-role profile (overrides the configuration)")
	f.StringVar(&flags.severityThreshold, "severity-threshold", "info", "Minimum severity to emit: info, warn, or critical")
	f.StringVar(&flags.failOn, "fail-on", "", "Exit 2 if verdict >= this level (REVIEW or REJECT)")
	f.StringVar(&flags.sqlitePath, "sqlite", "", "Also store the report in this SQLite database")
	f.StringVar(&flags.patchOut, "repair-patch-out", "", "Write the CSV quote repairs in diff-match-patch format to this file")
	f.StringVar(&flags.asOf, "as-of", "", "Evaluation date YYYY-MM-DD (default today)")
	f.StringVar(&flags.receiptCutoff, "receipt-cutoff", "", "Receipt cutoff date YYYY-MM-DD")
	f.IntVar(&flags.parallelism, "parallelism", 0, "Maximum checks run at once (0 = unlimited)")
	f.BoolVar(&flags.verbose, "verbose", false, "Log processing steps at debug level")

	var rflags renderFlags
	renderCmd := &cobra.Command{
		Use:   "render <report.json>",
		Short: "Render a saved JSON report in another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0], rflags)
		},
	}
	rf := renderCmd.Flags()
	rf.StringVar(&rflags.format, "format", "md", "Output format: "+strings.Join(render.Formats, ", "))
	rf.StringVar(&rflags.out, "out", "", "Write output to file instead of stdout")

	profileCmd := &cobra.Command{
		Use:   "profile [name]",
		Short: "Print the column roles of a profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runProfile(cmd.OutOrStdout(), name)
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs <database>",
		Short: "List the runs stored in a SQLite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	root.AddCommand(checkCmd, renderCmd, profileCmd, runsCmd)
	return root
}

func runCheck(ctx context.Context, dir string, flags checkFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// --- Step 1: Validate flags ---
	threshold, err := validateFlags(flags)
	if err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}

	// --- Step 2: Load configuration ---
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return codeError(exitInput, "loading config: %s", err)
	}
	if flags.profileName != "" {
		cfg.Profile = flags.profileName
	}
	if flags.asOf != "" {
		cfg.Rules.AsOf = flags.asOf
	}
	if flags.receiptCutoff != "" {
		cfg.Rules.ReceiptCutoff = flags.receiptCutoff
	}
	params, err := cfg.Params(time.Now())
	if err != nil {
		return codeError(exitInput, "rule parameters: %s", err)
	}

	level := cfg.Logging.Level
	if flags.verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return codeError(exitInput, "configuring logging: %s", err)
	}

	// --- Step 3: Resolve profile ---
	prof, err := profile.Get(cfg.Profile)
	if err != nil {
		return codeError(exitInput, "loading profile: %s", err)
	}
	prof, err = prof.WithOverrides(cfg.Roles)
	if err != nil {
		return codeError(exitInput, "applying role overrides: %s", err)
	}

	// --- Step 4: Load data ---
	log.WithField("dir", dir).Debug("loading data directory")
	ds, err := dataset.LoadDir(dir, cfg.FileMatches())
	if err != nil {
		return codeError(exitInput, "loading data: %s", err)
	}
	if len(ds.Sources) == 0 {
		return codeError(exitInput, "no CSV file in %s matches the file mapping", dir)
	}
	for _, name := range ds.Ignored {
		log.WithField("file", name).Warn("file matches no table, ignored")
	}
	for _, s := range ds.Sources {
		log.WithFields(logrus.Fields{
			"table":    s.Table,
			"file":     s.Path,
			"rows":     s.Data.Len(),
			"repaired": s.RepairedLines,
		}).Info("file loaded")
	}

	// --- Step 5: Run the audit ---
	res, err := audit.Run(ctx, audit.Input{
		Directory: dir,
		Files:     ds.Files(),
		Tables:    ds.Tables(),
	}, audit.Options{
		Params:      params,
		Profile:     prof,
		Logger:      log,
		Version:     version,
		Parallelism: flags.parallelism,
	})
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	report := res.Report
	verdict := report.Summary.Verdict

	// --- Step 6: Persist the full report before filtering ---
	if flags.sqlitePath != "" {
		if err := saveReport(ctx, flags.sqlitePath, report); err != nil {
			return codeError(exitOutput, "%s", err)
		}
		log.WithField("database", flags.sqlitePath).Info("report stored")
	}

	// --- Step 7: Apply severity threshold (output only, summary keeps all counts) ---
	report.Input.SeverityThreshold = string(threshold)
	report.Anomalies = review.FilterBySeverity(report.Anomalies, threshold)

	// --- Step 8: Write repair patch ---
	if flags.patchOut != "" {
		files := make([]patch.File, 0, len(ds.Sources))
		for _, s := range ds.Sources {
			files = append(files, patch.File{Path: s.Path, Before: s.Raw, After: s.Repaired})
		}
		diffText := patch.GenerateDiff(files, log)
		if err := os.WriteFile(flags.patchOut, []byte(diffText), 0o644); err != nil {
			// advisory output, the report is still written
			log.WithError(err).Warn("repair patch write failed")
		}
	}

	// --- Step 9: Render and write output ---
	if err := writeReport(report, flags.format, flags.out); err != nil {
		return err
	}

	// --- Step 10: Evaluate --fail-on ---
	if flags.failOn != "" {
		failOn := schema.Verdict(strings.ToUpper(flags.failOn))
		if schema.VerdictOrdinal(verdict) >= schema.VerdictOrdinal(failOn) {
			return codeError(exitFailOn, "verdict %s meets or exceeds --fail-on threshold %s", verdict, failOn)
		}
	}
	return nil
}

func runRender(path string, flags renderFlags) error {
	if _, err := render.NewRenderer(flags.format); err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return codeError(exitInput, "reading report: %s", err)
	}
	report, err := validate.Parse(string(data))
	if err != nil {
		return codeError(exitInput, "invalid report %s: %s", path, err)
	}
	return writeReport(report, flags.format, flags.out)
}

func runProfile(w io.Writer, name string) error {
	p, err := profile.Get(name)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}
	_, err = io.WriteString(w, p.Describe())
	return err
}

func runRuns(ctx context.Context, w io.Writer, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(path); err != nil {
		return codeError(exitInput, "opening database: %s", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}
	defer s.Close()

	runs, err := s.Runs(ctx)
	if err != nil {
		return codeError(exitGeneric, "%s", err)
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-6s  %d anomalies\n", r.RunID, r.Verdict, r.Anomalies)
	}
	return nil
}

func saveReport(ctx context.Context, path string, report *schema.Report) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveReport(ctx, report)
}

func writeReport(report *schema.Report, format, out string) error {
	renderer, err := render.NewRenderer(format)
	if err != nil {
		return codeError(exitInput, "invalid format: %s", err)
	}
	outputBytes, err := renderer.Render(report)
	if err != nil {
		return codeError(exitOutput, "rendering output: %s", err)
	}

	if out != "" {
		if err := os.WriteFile(out, outputBytes, 0o644); err != nil {
			return codeError(exitOutput, "writing output file: %s", err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(outputBytes); err != nil {
		return codeError(exitOutput, "writing output: %s", err)
	}
	// Ensure text output ends with a newline for terminal friendliness.
	if format != "xlsx" && len(outputBytes) > 0 && outputBytes[len(outputBytes)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

// validateFlags returns the parsed severity threshold, or an error if any
// flag value is invalid.
func validateFlags(flags checkFlags) (schema.Severity, error) {
	if _, err := render.NewRenderer(flags.format); err != nil {
		return "", fmt.Errorf("--format: %w", err)
	}

	if flags.failOn != "" {
		switch schema.Verdict(strings.ToUpper(flags.failOn)) {
		case schema.VerdictReview, schema.VerdictReject:
		default:
			return "", fmt.Errorf("--fail-on must be REVIEW or REJECT, got %q", flags.failOn)
		}
	}

	for name, v := range map[string]string{"--as-of": flags.asOf, "--receipt-cutoff": flags.receiptCutoff} {
		if v == "" {
			continue
		}
		if _, err := config.ParseDate(v); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
	}

	if flags.parallelism < 0 {
		return "", fmt.Errorf("--parallelism must be >= 0, got %d", flags.parallelism)
	}

	threshold, err := review.ParseSeverity(flags.severityThreshold)
	if err != nil {
		return "", fmt.Errorf("--severity-threshold: %w", err)
	}
	return threshold, nil
}
