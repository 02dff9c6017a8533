package presenter

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// ReportRow is one posting line of a report.
type ReportRow struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Percent  int    `json:"percent"`
	Source   string `json:"source"`
	Location string `json:"location,omitempty"`
	Salary   string `json:"salary,omitempty"`
	URL      string `json:"url,omitempty"`
	State    string `json:"state"`
	Review   string `json:"review,omitempty"`
}

// CompanyReport groups the rows of one company.
type CompanyReport struct {
	Company string      `json:"company"`
	State   State       `json:"state"`
	Reason  string      `json:"reason,omitempty"`
	Hidden  int         `json:"hidden,omitempty"`
	Rows    []ReportRow `json:"rows"`
}

// Report returns one entry per company in name order.
func (p *Presenter) Report(filter Filter) []CompanyReport {
	views := p.Views(filter)
	out := make([]CompanyReport, 0, len(views))
	for _, v := range views {
		r := CompanyReport{
			Company: fmt.Sprintf("%s (%s)", v.Company.Name, v.Company.ID),
			State:   v.State,
			Reason:  v.Reason,
			Hidden:  v.Hidden,
			Rows:    make([]ReportRow, 0, len(v.Postings)),
		}
		for _, pv := range v.Postings {
			row := ReportRow{
				Key:      pv.Key,
				Title:    pv.Title,
				Percent:  pv.Percent(),
				Source:   string(pv.Provenance),
				Location: pv.Location,
				URL:      pv.URL,
				State:    string(pv.State),
			}
			if pv.Salary != nil {
				row.Salary = pv.Salary.String()
			}
			if pv.Assessment != nil {
				row.Review = pv.Assessment.Reason
			}
			r.Rows = append(r.Rows, row)
		}
		out = append(out, r)
	}
	return out
}

// WriteReport renders the report as aligned text.
func WriteReport(w io.Writer, reports []CompanyReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		fmt.Fprintf(tw, "%s [%s]\n", r.Company, r.State)
		if r.Reason != "" {
			fmt.Fprintf(tw, "  %s\n", r.Reason)
		}
		for _, row := range r.Rows {
			fmt.Fprintf(tw, "  %d%%\t%s\t%s\t%s\t%s\t%s\n", row.Percent, row.Title, row.Location, row.Source, row.State, row.URL)
		}
		if r.Hidden > 0 {
			fmt.Fprintf(tw, "  (%d below the relevance floor hidden)\n", r.Hidden)
		}
	}
	return tw.Flush()
}
