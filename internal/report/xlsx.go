package report

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
)

const (
	sheetPackages = "packages"
	sheetClasses  = "classes"
	defaultSheet  = "Sheet1"
)

// WriteXLSX saves the package and class tables as two sheets of a workbook.
// Numeric columns are stored as numbers so they can be sorted and charted.
func WriteXLSX(path string, packages coverage.PackageTotals, classes coverage.ClassTotals) error {
	sheet := excelize.NewFile()
	defer func() {
		if err := sheet.Close(); err != nil {
			log.Warnf("unable to close workbook %s: %v", path, err)
		}
	}()

	for _, s := range []struct {
		name  string
		table Table
	}{
		{name: sheetPackages, table: PackageTable(packages)},
		{name: sheetClasses, table: ClassTable(classes)},
	} {
		if _, err := sheet.NewSheet(s.name); err != nil {
			return errors.Wrapf(err, "unable to create sheet %s", s.name)
		}
		if err := populateSheet(sheet, s.name, s.table); err != nil {
			return err
		}
	}
	if err := sheet.DeleteSheet(defaultSheet); err != nil {
		return errors.Wrap(err, "unable to remove default sheet")
	}
	if idx, err := sheet.GetSheetIndex(sheetPackages); err == nil {
		sheet.SetActiveSheet(idx)
	}

	if err := sheet.SaveAs(path); err != nil {
		return errors.Wrapf(err, "unable to save workbook %s", path)
	}
	log.Infof("Spreadsheet saved to %s", path)
	return nil
}

// populateSheet writes the header on the first row and one row per item.
func populateSheet(sheet *excelize.File, sheetName string, t Table) error {
	header := append([]string{}, t.Headers...)
	header[1] = "Coverage (%)"
	if err := setRow(sheet, sheetName, 1, toCells(header)); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cells := []interface{}{row[0], percentValue(row[1]), atoi(row[2]), atoi(row[3])}
		if err := setRow(sheet, sheetName, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(sheet *excelize.File, sheetName string, rowN int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowN)
	if err != nil {
		return err
	}
	if err := sheet.SetSheetRow(sheetName, cell, &cells); err != nil {
		return errors.Wrapf(err, "unable to write row %d of sheet %s", rowN, sheetName)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// percentValue converts "90.00%" back to 90.
func percentValue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0
	}
	return v
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
