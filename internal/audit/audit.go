// Package audit runs the full pipeline over a set of raw tables: clean every
// table, run every check, merge the anomalies and build the report.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/check/integrity"
	"github.com/dshills/policyaudit/internal/check/quality"
	"github.com/dshills/policyaudit/internal/check/reconcile"
	"github.com/dshills/policyaudit/internal/check/tariff"
	"github.com/dshills/policyaudit/internal/check/temporal"
	"github.com/dshills/policyaudit/internal/config"
	"github.com/dshills/policyaudit/internal/ledger"
	"github.com/dshills/policyaudit/internal/logging"
	"github.com/dshills/policyaudit/internal/normalize"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/profile"
	"github.com/dshills/policyaudit/internal/review"
	"github.com/dshills/policyaudit/internal/rules"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// Tool is the name written to reports.
const Tool = "policyaudit"

// Checks returns every check in report order.
func Checks() []check.Check {
	var out []check.Check
	out = append(out, integrity.Checks()...)
	out = append(out, temporal.Checks()...)
	out = append(out, tariff.Checks()...)
	out = append(out, reconcile.Checks()...)
	out = append(out, quality.Checks()...)
	return out
}

// Options configures a run.
type Options struct {
	Params  rules.Params
	Profile *profile.Profile
	Logger  logrus.FieldLogger
	Version string
	// Parallelism bounds the checks run at once; zero means no limit.
	Parallelism int
}

// Input is the raw data of a run.
type Input struct {
	Directory string
	Files     []schema.SourceFile
	Tables    map[string]*table.Table
}

// Result is the outcome of Run.
type Result struct {
	Report  *schema.Report
	Cleaned map[string]*table.Table
	Columns map[string][]normalize.ColumnReport
}

// Run cleans the tables of in, runs every check and returns the report. The
// raw tables are not modified. Only context cancellation makes Run fail.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	if opts.Profile == nil {
		p, err := profile.Get("")
		if err != nil {
			return nil, err
		}
		opts.Profile = p
	}

	runID := uuid.NewString()
	log = log.WithField("run_id", runID)

	names := make([]string, 0, len(in.Tables))
	for name := range in.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &Result{
		Cleaned: make(map[string]*table.Table, len(names)),
		Columns: make(map[string][]normalize.ColumnReport, len(names)),
	}
	l := ledger.New()
	n := normalize.New(opts.Profile)
	for _, name := range names {
		out := n.Normalize(in.Tables[name])
		res.Cleaned[name] = out.Table
		res.Columns[name] = out.Columns
		added := l.Add(out.Anomalies...)

		tlog := log.WithFields(logrus.Fields{"table": name, "rows": out.Table.Len()})
		for _, c := range out.Columns {
			if c.Mismatch() {
				tlog.WithFields(logrus.Fields{
					"column":   c.Column,
					"declared": c.Declared,
					"inferred": c.Inferred,
				}).Warn("column values do not match the declared role")
			}
		}
		if len(out.Dropped) > 0 {
			tlog.WithField("dropped", out.Dropped).Debug("dropped columns")
		}
		tlog.WithField("anomalies", added).Info("table cleaned")
	}

	checkIn := check.Input{
		Data:     policy.FromTables(res.Cleaned),
		Params:   opts.Params,
		Cleaning: l.Entries(),
	}

	checks := Checks()
	results := make([]schema.CheckResult, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Run(checkIn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.LogError(log, "audit", "Run", "running checks", nil, err)
		return nil, fmt.Errorf("running checks: %w", err)
	}

	for _, r := range results {
		added := l.Add(r.Anomalies...)
		clog := log.WithFields(logrus.Fields{"check": r.Name, "status": r.Status})
		if !r.Performed() {
			clog.WithField("reason", r.Reason).Warn("check skipped")
			continue
		}
		clog.WithFields(logrus.Fields{"anomalies": r.Count, "new": added}).Debug("check done")
	}

	anomalies := ledger.Enrich(l.Entries(), in.Tables)
	res.Report = &schema.Report{
		Tool:    Tool,
		Version: opts.Version,
		RunID:   runID,
		Input: schema.Input{
			Directory:     in.Directory,
			Files:         in.Files,
			Profile:       opts.Profile.Name,
			AsOf:          dateString(opts.Params.AsOf),
			ReceiptCutoff: dateString(opts.Params.ReceiptCutoff),
		},
		Summary:   review.Summarize(anomalies, results),
		Checks:    results,
		Recap:     review.Recap(anomalies),
		Anomalies: anomalies,
	}
	log.WithFields(logrus.Fields{
		"verdict":   res.Report.Summary.Verdict,
		"anomalies": res.Report.Summary.Total,
	}).Info("audit complete")
	return res, nil
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(config.DateLayout)
}
