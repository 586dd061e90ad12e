// Package dataset loads the CSV exports of a policy dataset into raw tables.
package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/policyaudit/internal/config"
	"github.com/dshills/policyaudit/internal/repair"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// Source holds one loaded file with derived metadata.
type Source struct {
	Table         string
	Path          string
	Hash          string // "sha256:<hex>" of the file as read
	Raw           string // original content
	Repaired      string // content after quote repair
	RepairedLines int
	Data          *table.Table
}

// Dataset is the set of files found in a directory.
type Dataset struct {
	Dir     string
	Sources []*Source // sorted by table name
	Ignored []string  // csv files matching no table
}

// Tables returns the raw tables keyed by name.
func (d *Dataset) Tables() map[string]*table.Table {
	out := make(map[string]*table.Table, len(d.Sources))
	for _, s := range d.Sources {
		out[s.Table] = s.Data
	}
	return out
}

// Files describes the loaded sources for the report.
func (d *Dataset) Files() []schema.SourceFile {
	out := make([]schema.SourceFile, 0, len(d.Sources))
	for _, s := range d.Sources {
		out = append(out, schema.SourceFile{
			Table:         s.Table,
			Path:          s.Path,
			Hash:          s.Hash,
			Rows:          s.Data.Len(),
			RepairedLines: s.RepairedLines,
		})
	}
	return out
}

// LoadDir loads every .csv file of dir whose name contains one of the
// mapping fragments (case-insensitive). The first matching fragment wins.
// Two files resolving to the same table is an error.
func LoadDir(dir string, mapping []config.FileMatch) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	ds := &Dataset{Dir: dir}
	seen := make(map[string]string)

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		tableName := match(name, mapping)
		if tableName == "" {
			ds.Ignored = append(ds.Ignored, name)
			continue
		}
		if prev, ok := seen[tableName]; ok {
			return nil, fmt.Errorf("files %s and %s both map to table %q", prev, name, tableName)
		}
		seen[tableName] = name

		src, err := LoadFile(filepath.Join(dir, name), tableName)
		if err != nil {
			return nil, err
		}
		ds.Sources = append(ds.Sources, src)
	}

	sort.Slice(ds.Sources, func(i, j int) bool { return ds.Sources[i].Table < ds.Sources[j].Table })
	return ds, nil
}

func match(filename string, mapping []config.FileMatch) string {
	lower := strings.ToLower(filename)
	for _, m := range mapping {
		if strings.Contains(lower, m.Fragment) {
			return m.Table
		}
	}
	return ""
}

// LoadFile reads one CSV file, computes its hash, repairs its quoting and
// parses it into a raw table.
func LoadFile(path, tableName string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", tableName, err)
	}

	raw := string(data)
	sum := sha256.Sum256(data)
	repaired, changed := repair.Repair(raw)

	t, err := Parse(tableName, repaired)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &Source{
		Table:         tableName,
		Path:          path,
		Hash:          fmt.Sprintf("sha256:%x", sum),
		Raw:           raw,
		Repaired:      repaired,
		RepairedLines: changed,
		Data:          t,
	}, nil
}

// ErrNoHeader is returned for a file without a header row.
var ErrNoHeader = errors.New("missing header row")

// Parse reads comma-separated content with a header row. Every cell is kept
// as text; blank cells are null. Row ids are "<table>:<line>" where line is
// the 1-based source line the record starts on.
func Parse(tableName, content string) (*table.Table, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(content, "\ufeff")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := table.New(tableName, header)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)

		cells := make([]table.Value, len(rec))
		for i, field := range rec {
			if strings.TrimSpace(field) == "" {
				cells[i] = table.Null()
				continue
			}
			cells[i] = table.Text(field)
		}
		t.Append(table.NewRowID(tableName, line), cells)
	}
	return t, nil
}
