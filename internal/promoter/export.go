package promoter

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/store"
	"github.com/sells-group/promoter-service/internal/tabular"
)

// ExportHeaders is the fixed column set of promoter exports.
var ExportHeaders = []string{
	"ID",
	"First Name",
	"Last Name",
	"Email",
	"Phone",
	"Mobile Number",
	"Nationality",
	"ID Card Number",
	"Passport Number",
	"ID Card Expiry Date",
	"Passport Expiry Date",
	"Status",
	"Employer ID",
	"Created At",
}

const exportSheet = "Promoters"

// ExportCSV returns every promoter matching search and filters as CSV. The
// header row is bare; every data cell is quoted with inner quotes doubled.
// Rows are separated by "\n".
func (s *Service) ExportCSV(ctx context.Context, search string, filters model.PromoterFilters) (string, error) {
	start := time.Now()
	rows, err := s.exportRows(ctx, "export_csv", search, filters)
	s.metrics.Observe("export_csv", start, err)
	if err != nil {
		return "", fail(err, "export promoters")
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(ExportHeaders, ","))
	for _, r := range rows {
		lines = append(lines, strings.Join(lo.Map(r, func(cell string, _ int) string {
			return quoteCell(cell)
		}), ","))
	}
	return strings.Join(lines, "\n"), nil
}

// ExportXLSX writes the same rows as ExportCSV to w as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, search string, filters model.PromoterFilters) error {
	start := time.Now()
	rows, err := s.exportRows(ctx, "export_xlsx", search, filters)
	if err == nil {
		err = tabular.WriteXLSX(w, exportSheet, ExportHeaders, rows)
	}
	s.metrics.Observe("export_xlsx", start, err)
	if err != nil {
		return fail(err, "export promoters")
	}
	return nil
}

func (s *Service) exportRows(ctx context.Context, op, search string, filters model.PromoterFilters) ([][]string, error) {
	res, err := retrying(ctx, s, op, func(ctx context.Context) (*store.Result, error) {
		q := query.From(query.TablePromoters)
		query.BuildPromoterQuery(q, search, filters, s.now())
		q.Order(query.ColNameEN, true)
		return s.store.Select(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	promoters, err := store.Decode[model.Promoter](res.Rows)
	if err != nil {
		return nil, err
	}
	return lo.Map(promoters, func(p model.Promoter, _ int) []string {
		return exportRow(p)
	}), nil
}

// exportRow maps p onto ExportHeaders. Promoters carry no split first and
// last name, so those two cells are always empty.
func exportRow(p model.Promoter) []string {
	return []string{
		p.ID,
		"",
		"",
		p.Email,
		p.Phone,
		p.MobileNumber,
		p.Nationality,
		p.IDCardNumber,
		p.PassportNumber,
		dateCell(p.IDCardExpiryDate),
		dateCell(p.PassportExpiryDate),
		string(p.Status),
		p.EmployerID,
		timeCell(p.CreatedAt),
	}
}

func quoteCell(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func dateCell(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func timeCell(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// importRequest is the body of the bulk-import job.
type importRequest struct {
	CSVData []tabular.Record `json:"csvData"`
	UserID  string           `json:"userId"`
}

// ImportCSV hands parsed CSV rows to the bulk-import job and returns its
// result envelope unchanged.
func (s *Service) ImportCSV(ctx context.Context, rows []tabular.Record, userID string) (*model.ImportResult, error) {
	start := time.Now()
	if s.invoker == nil {
		err := eris.New("import job invoker is not configured")
		s.metrics.Observe("import_csv", start, err)
		return nil, fail(err, "import promoters")
	}
	if rows == nil {
		rows = []tabular.Record{}
	}

	res, err := retrying(ctx, s, "import_csv", func(ctx context.Context) (*model.ImportResult, error) {
		var out model.ImportResult
		if err := s.invoker.Invoke(ctx, jobImportPromoters, importRequest{CSVData: rows, UserID: userID}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	s.metrics.Observe("import_csv", start, err)
	if err != nil {
		return nil, fail(err, "import promoters")
	}
	return res, nil
}
