package coverage

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Column names used from the JaCoCo CSV header.
const (
	ColumnGroup       = "GROUP"
	ColumnPackage     = "PACKAGE"
	ColumnClass       = "CLASS"
	ColumnLineMissed  = "LINE_MISSED"
	ColumnLineCovered = "LINE_COVERED"
)

var requiredColumns = []string{ColumnPackage, ColumnClass, ColumnLineMissed, ColumnLineCovered}

// Row is the coverage of a single class, as read from one CSV record.
type Row struct {
	Group   string
	Package string
	Class   string
	Missed  int
	Covered int
}

// NewRow extracts the line counters from a record. Counts that are absent,
// not numeric or negative are read as zero.
func NewRow(rec Record) Row {
	return Row{
		Group:   rec.Get(ColumnGroup),
		Package: rec.Get(ColumnPackage),
		Class:   rec.Get(ColumnClass),
		Missed:  parseCount(rec.Get(ColumnLineMissed)),
		Covered: parseCount(rec.Get(ColumnLineCovered)),
	}
}

func (r Row) Total() int {
	return r.Missed + r.Covered
}

// QualifiedName is the package and class joined by a dot, or the bare class
// when the package is empty.
func (r Row) QualifiedName() string {
	if r.Package == "" {
		return r.Class
	}
	return r.Package + "." + r.Class
}

func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Totals holds covered and total lines.
type Totals struct {
	Covered int
	Total   int
}

func (t Totals) Missed() int {
	return t.Total - t.Covered
}

// Percent is covered/total*100, and 100 when there are no lines.
func (t Totals) Percent() float64 {
	if t.Total == 0 {
		return 100
	}
	return float64(t.Covered) / float64(t.Total) * 100
}

// PercentString is the percentage with two decimals and a trailing %.
func (t Totals) PercentString() string {
	return FormatPercent(t.Covered, t.Total)
}

// FormatPercent renders covered/total as "90.00%".
func FormatPercent(covered, total int) string {
	return fmt.Sprintf("%.2f%%", Totals{Covered: covered, Total: total}.Percent())
}

// PackageTotals is keyed by package name.
type PackageTotals map[string]Totals

// Names returns the package names sorted byte-wise.
func (p PackageTotals) Names() []string {
	return sortedKeys(p)
}

// ClassTotal is the coverage of a single class.
type ClassTotal struct {
	Totals
	Coverage string
}

// ClassTotals is keyed by fully qualified class name.
type ClassTotals map[string]ClassTotal

// Names returns the qualified class names sorted byte-wise.
func (c ClassTotals) Names() []string {
	return sortedKeys(c)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Aggregate folds rows into per-package and per-class totals.
type Aggregate struct {
	Packages PackageTotals
	Classes  ClassTotals
	Rows     int
}

func NewAggregate() *Aggregate {
	return &Aggregate{
		Packages: PackageTotals{},
		Classes:  ClassTotals{},
	}
}

// Add sums the row into its package and replaces any previous value of its
// class (last write wins on duplicated class names).
func (a *Aggregate) Add(row Row) {
	a.Rows++
	total := row.Total()

	if row.Package != "" {
		pkg := a.Packages[row.Package]
		pkg.Covered += row.Covered
		pkg.Total += total
		a.Packages[row.Package] = pkg
	}

	if row.Class != "" {
		t := Totals{Covered: row.Covered, Total: total}
		a.Classes[row.QualifiedName()] = ClassTotal{
			Totals:   t,
			Coverage: t.PercentString(),
		}
	}
}

// AggregateFile reads the CSV at path and returns the totals once every line
// has been consumed.
func AggregateFile(path string) (*Aggregate, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if header := reader.Header(); len(header) > 0 {
		for _, column := range requiredColumns {
			if !slices.Contains(header, column) {
				log.Warnf("%s: column %s not found in header, its values are read as empty", path, column)
			}
		}
	}

	agg := NewAggregate()
	for reader.Next() {
		agg.Add(NewRow(reader.Record()))
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return agg, nil
}
