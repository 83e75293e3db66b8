// Package report accumulates validation rows and renders them as CSV,
// a terminal table or a summary.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/retailtools/catalogcheck/internal/validator"
)

// CSVHeader is the fixed column order of the CSV output. Downstream
// spreadsheets key on these names; do not reorder.
var CSVHeader = []string{
	"sku", "cataloged", "raw_breadcrumbs", "clean_breadcrumbs",
	"source", "url", "mode", "observation", "html_len",
}

// Report collects rows in input order.
type Report struct {
	rows []validator.Result
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// Add appends one row.
func (r *Report) Add(res validator.Result) {
	r.rows = append(r.rows, res)
}

// Rows returns all rows in input order.
func (r *Report) Rows() []validator.Result {
	return r.rows
}

// NotCataloged returns only the rows that failed the rule, input order
// preserved.
func (r *Report) NotCataloged() []validator.Result {
	var out []validator.Result
	for _, row := range r.rows {
		if !row.Cataloged {
			out = append(out, row)
		}
	}
	return out
}

// Summary totals a report.
type Summary struct {
	Total        int `json:"total"`
	Cataloged    int `json:"cataloged"`
	NotCataloged int `json:"not_cataloged"`
}

// Summary tallies the rows.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.rows)}
	for _, row := range r.rows {
		if row.Cataloged {
			s.Cataloged++
		} else {
			s.NotCataloged++
		}
	}
	return s
}

// WriteCSV writes the full report with the fixed header.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range r.rows {
		record := []string{
			row.SKU,
			yesNo(row.Cataloged),
			row.RawPath(),
			row.CleanPath(),
			row.Source,
			row.URL,
			row.Mode,
			row.Observation,
			fmt.Sprintf("%d", row.BodyLen),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.SKU, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
