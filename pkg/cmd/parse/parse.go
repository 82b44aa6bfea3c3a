package parse

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
)

type parseInput struct {
	classes bool
}

func NewCmdParse() *cobra.Command {
	args := parseInput{}
	cmd := &cobra.Command{
		Use:     "parse <input-csv>",
		Example: "covreport parse target/site/jacoco/jacoco.csv --classes",
		Short:   "Parse a JaCoCo CSV and print the coverage totals.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			agg, err := coverage.AggregateFile(posArgs[0])
			if err != nil {
				return fmt.Errorf("error parsing coverage file: %w", err)
			}
			return printSummary(cmd.OutOrStdout(), posArgs[0], agg, args.classes)
		},
	}
	cmd.Flags().BoolVar(&args.classes, "classes", false, "Also print the coverage of each class.")
	return cmd
}

func printSummary(w io.Writer, file string, agg *coverage.Aggregate, classes bool) error {
	s := agg.Summarize()

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "- File: %s\n", file)
	fmt.Fprintf(w, "- Rows: %d\n", agg.Rows)
	fmt.Fprintf(w, "- Packages: %d\n", s.Packages)
	fmt.Fprintf(w, "- Classes: %d\n", s.Classes)
	fmt.Fprintf(w, "- Lines: %d/%d (%s)\n", s.Overall.Covered, s.Overall.Total, s.Overall.PercentString())
	fmt.Fprintln(w)

	tbWriter := tabwriter.NewWriter(w, 0, 8, 1, '\t', tabwriter.AlignRight)
	fmt.Fprintln(tbWriter, "PACKAGE\tCOVERAGE\tCOVERED\tMISSED\tTOTAL\t")
	for _, name := range agg.Packages.Names() {
		pkg := agg.Packages[name]
		fmt.Fprintf(tbWriter, "%s\t%s\t%d\t%d\t%d\t\n", name, pkg.PercentString(), pkg.Covered, pkg.Missed(), pkg.Total)
	}
	if classes {
		fmt.Fprintln(tbWriter, "\t\t\t\t\t")
		fmt.Fprintln(tbWriter, "CLASS\tCOVERAGE\tCOVERED\tMISSED\tTOTAL\t")
		for _, name := range agg.Classes.Names() {
			cls := agg.Classes[name]
			fmt.Fprintf(tbWriter, "%s\t%s\t%d\t%d\t%d\t\n", name, cls.Coverage, cls.Covered, cls.Missed(), cls.Total)
		}
	}
	return tbWriter.Flush()
}
