package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
)

func sampleTotals() (coverage.PackageTotals, coverage.ClassTotals) {
	agg := coverage.NewAggregate()
	agg.Add(coverage.Row{Package: "com.acme", Class: "Foo", Missed: 2, Covered: 8})
	agg.Add(coverage.Row{Package: "com.acme", Class: "Bar", Missed: 0, Covered: 10})
	agg.Add(coverage.Row{Package: "ax.beta", Class: "Zed", Missed: 3, Covered: 1})
	return agg.Packages, agg.Classes
}

func TestMarkdown(t *testing.T) {
	packages, classes := sampleTotals()

	want := `## Coverage Report

| Package | Coverage | Lines Covered | Total Lines |
| --- | --- | --- | --- |
| ax.beta | 25.00% | 1 | 4 |
| com.acme | 90.00% | 18 | 20 |


<details>
  <summary>Class Coverage</summary>

  | Class | Coverage | Lines Covered | Total Lines |
  | --- | --- | --- | --- |
  | ax.beta.Zed | 25.00% | 1 | 4 |
  | com.acme.Bar | 100.00% | 10 | 10 |
  | com.acme.Foo | 80.00% | 8 | 10 |

</details>
`
	got, err := Markdown(packages, classes)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := Markdown(packages, classes)
	require.NoError(t, err)
	assert.Equal(t, got, again, "rendering is deterministic")
}

func TestMarkdownEmpty(t *testing.T) {
	got, err := Markdown(coverage.PackageTotals{}, coverage.ClassTotals{})
	require.NoError(t, err)
	assert.Equal(t, "## Coverage Report\n\n\n\n\n<details>\n  <summary>Class Coverage</summary>\n\n\n\n</details>\n", got)
}

func TestMarkdownSortIsCaseSensitive(t *testing.T) {
	packages := coverage.PackageTotals{
		"beta":  {Covered: 1, Total: 1},
		"Alpha": {Covered: 1, Total: 1},
		"alpha": {Covered: 1, Total: 1},
	}
	table := PackageTable(packages)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Alpha", table.Rows[0][0])
	assert.Equal(t, "alpha", table.Rows[1][0])
	assert.Equal(t, "beta", table.Rows[2][0])
}

func TestComment(t *testing.T) {
	marker := Marker("build/jacoco.csv")
	assert.Equal(t, "<!-- coverage-report:build/jacoco.csv -->", marker)
	assert.Equal(t,
		"<!-- coverage-report:build/jacoco.csv -->\n# Backend\n\n## Coverage Report\n",
		Comment(marker, "Backend", "## Coverage Report\n"))
}

func TestWriteXLSX(t *testing.T) {
	packages, classes := sampleTotals()
	path := filepath.Join(t.TempDir(), "coverage.xlsx")
	require.NoError(t, WriteXLSX(path, packages, classes))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetPackages, sheetClasses}, f.GetSheetList())

	rows, err := f.GetRows(sheetPackages)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Package", "Coverage (%)", "Lines Covered", "Total Lines"}, rows[0])
	assert.Equal(t, []string{"com.acme", "90", "18", "20"}, rows[2])

	rows, err = f.GetRows(sheetClasses)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestRenderChart(t *testing.T) {
	packages, _ := sampleTotals()
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, "Coverage Report", packages))
	assert.Contains(t, buf.String(), "com.acme")
	assert.Contains(t, buf.String(), "ax.beta")
}

func TestPreview(t *testing.T) {
	packages, classes := sampleTotals()
	md, err := Markdown(packages, classes)
	require.NoError(t, err)

	out, err := Preview(md)
	require.NoError(t, err)
	assert.Contains(t, out, "Coverage Report")
	assert.Contains(t, out, "com.acme")
}
