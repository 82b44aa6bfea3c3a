// Package report renders aggregated coverage totals. Markdown is the primary
// output; the spreadsheet, chart and terminal preview are optional views of the
// same data.
package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/redhat-openshift-ecosystem/covreport/internal/assets"
	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
)

const (
	templateCoverage = "coverage.md.tmpl"
	tableIndent      = "  "
)

var (
	packageHeaders = []string{"Package", "Coverage", "Lines Covered", "Total Lines"}
	classHeaders   = []string{"Class", "Coverage", "Lines Covered", "Total Lines"}
)

// Table is a rendered-ready table: the header and one cell list per row.
type Table struct {
	Headers []string
	Rows    [][]string
}

// PackageTable projects the package totals sorted by package name.
func PackageTable(packages coverage.PackageTotals) Table {
	t := Table{Headers: packageHeaders}
	for _, name := range packages.Names() {
		pkg := packages[name]
		t.Rows = append(t.Rows, []string{
			name,
			pkg.PercentString(),
			fmt.Sprintf("%d", pkg.Covered),
			fmt.Sprintf("%d", pkg.Total),
		})
	}
	return t
}

// ClassTable projects the class totals sorted by qualified class name.
func ClassTable(classes coverage.ClassTotals) Table {
	t := Table{Headers: classHeaders}
	for _, name := range classes.Names() {
		cls := classes[name]
		t.Rows = append(t.Rows, []string{
			name,
			cls.Coverage,
			fmt.Sprintf("%d", cls.Covered),
			fmt.Sprintf("%d", cls.Total),
		})
	}
	return t
}

// markdownTable renders a pipe table, indenting every line. A table without
// rows renders as an empty string.
func markdownTable(t Table, indent int) string {
	if len(t.Rows) == 0 {
		return ""
	}
	prefix := strings.Repeat(tableIndent, indent)
	separator := make([]string, len(t.Headers))
	for i := range separator {
		separator[i] = "---"
	}

	lines := make([]string, 0, len(t.Rows)+2)
	lines = append(lines,
		prefix+"| "+strings.Join(t.Headers, " | ")+" |",
		prefix+"| "+strings.Join(separator, " | ")+" |",
	)
	for _, row := range t.Rows {
		lines = append(lines, prefix+"| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the package summary table followed by the collapsible
// class table. It does no I/O besides reading the embedded template, and the
// same totals always render to the same bytes.
func Markdown(packages coverage.PackageTotals, classes coverage.ClassTotals) (string, error) {
	set, err := assets.Templates(template.FuncMap{"table": markdownTable})
	if err != nil {
		return "", errors.Wrap(err, "unable to load report templates")
	}

	var sb strings.Builder
	err = set.ExecuteTemplate(&sb, templateCoverage, struct {
		Packages Table
		Classes  Table
	}{
		Packages: PackageTable(packages),
		Classes:  ClassTable(classes),
	})
	if err != nil {
		return "", errors.Wrap(err, "unable to render report")
	}
	return sb.String(), nil
}

// Marker is the hidden HTML comment identifying the published report of a
// given coverage input.
func Marker(key string) string {
	return fmt.Sprintf("<!-- coverage-report:%s -->", key)
}

// Comment prefixes the report with the marker and a title heading.
func Comment(marker, title, markdown string) string {
	return fmt.Sprintf("%s\n# %s\n\n%s", marker, title, markdown)
}
