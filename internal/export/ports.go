package export

import "context"

// Row is one line of a monthly budget report: what one category gained or
// cost in one month, in cents, sign-normalized so spending is positive.
type Row struct {
	Month        string `json:"month"` // YYYY-MM
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	AmountCents  int64  `json:"amountCents"`
	IsIncome     bool   `json:"isIncome,omitempty"`
}

// Report is a full monthly budget report ready for export.
type Report struct {
	GeneratedAt string `json:"generatedAt"` // RFC3339
	Rows        []Row  `json:"rows"`
}

// ReportWriter is the port for outbound report destinations.
type ReportWriter interface {
	WriteReport(ctx context.Context, report Report) error
}
