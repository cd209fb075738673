// Package google mirrors invoices into a Google Sheets ledger.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"topdivers/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName = "Invoices"
	lastColumn       = "N"
	timeLayout       = "2006-01-02 15:04:05"
)

var ErrRowNotFound = errors.New("invoice row not found")

var headers = []any{
	"ID", "Buyer Name", "Buyer Email", "Buyer Phone", "Activity", "Activity IDs",
	"Amount", "Currency", "Type", "Coupon", "Status", "Picked Up", "Created At", "Updated At",
}

// InvoiceSheet keeps one row per invoice, keyed by the ID in column A.
type InvoiceSheet struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
	now           func() time.Time
}

// NewInvoiceSheet authenticates with a service account credentials file.
func NewInvoiceSheet(ctx context.Context, credentialsFile, spreadsheetID string) (*InvoiceSheet, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return NewInvoiceSheetWithService(srv, spreadsheetID), nil
}

func NewInvoiceSheetWithService(srv *sheets.Service, spreadsheetID string) *InvoiceSheet {
	return &InvoiceSheet{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     DefaultSheetName,
		rowCache:      make(map[int64]int),
		now:           time.Now,
	}
}

func (s *InvoiceSheet) rangeOf(cells string) string {
	return s.sheetName + "!" + cells
}

func (s *InvoiceSheet) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the header row.
func (s *InvoiceSheet) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1:"+lastColumn+"1"), &sheets.ValueRange{
		Values: [][]any{headers},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// WarmUpCache rebuilds the row index from column A.
func (s *InvoiceSheet) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
	for i, row := range resp.Values {
		if id, ok := cellID(row); ok {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// UpsertInvoice rewrites the invoice's row, appending it when missing.
func (s *InvoiceSheet) UpsertInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv == nil {
		return errors.New("invoice is nil")
	}

	rowIdx, err := s.FindInvoiceRow(ctx, inv.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.appendInvoice(ctx, inv)
	}
	if err != nil {
		return err
	}

	cells := fmt.Sprintf("A%d:%s%d", rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf(cells), &sheets.ValueRange{
		Values: [][]any{s.rowValues(inv)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *InvoiceSheet) appendInvoice(ctx context.Context, inv *models.Invoice) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:A"), &sheets.ValueRange{
		Values: [][]any{s.rowValues(inv)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(inv.ID, row)
		}
	}
	return nil
}

// UpdateInvoiceStatus rewrites the status, picked-up and updated-at cells.
func (s *InvoiceSheet) UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status string, pickedUp bool) error {
	rowIdx, err := s.FindInvoiceRow(ctx, invoiceID)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{Range: s.rangeOf(fmt.Sprintf("K%d:L%d", rowIdx, rowIdx)), Values: [][]any{{status, yesNo(pickedUp)}}},
			{Range: s.rangeOf(fmt.Sprintf("N%d", rowIdx)), Values: [][]any{{s.now().Format(timeLayout)}}},
		},
	}
	_, err = s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

// FindInvoiceRow returns the 1-based row of invoiceID.
func (s *InvoiceSheet) FindInvoiceRow(ctx context.Context, invoiceID int64) (int, error) {
	if invoiceID == 0 {
		return 0, errors.New("invoice id is required")
	}
	if row, ok := s.getCachedRow(invoiceID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if id, ok := cellID(row); ok && id == invoiceID {
			s.setCachedRow(invoiceID, i+1)
			return i + 1, nil
		}
	}
	return 0, ErrRowNotFound
}

func (s *InvoiceSheet) rowValues(inv *models.Invoice) []any {
	var ids []string
	for _, d := range inv.ActivityDetails {
		switch {
		case d.TripID != 0:
			ids = append(ids, strconv.FormatInt(d.TripID, 10))
		case d.CourseID != 0:
			ids = append(ids, strconv.FormatInt(d.CourseID, 10))
		}
	}
	updated := inv.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	created := ""
	if !inv.CreatedAt.IsZero() {
		created = inv.CreatedAt.Format(timeLayout)
	}
	return []any{
		inv.ID,
		inv.BuyerName,
		inv.BuyerEmail,
		inv.BuyerPhone,
		inv.Activity,
		strings.Join(ids, ","),
		inv.Amount.Float(),
		inv.Currency,
		inv.InvoiceType,
		inv.CouponCode,
		inv.Status,
		yesNo(inv.PickedUp),
		created,
		updated.Format(timeLayout),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cellID(row []any) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	switch v := row[0].(type) {
	case float64:
		return int64(v), v > 0
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// rowFromRange reads the first row number out of "Invoices!A7:N7".
func rowFromRange(r string) (int, bool) {
	_, cells, ok := strings.Cut(r, "!")
	if !ok {
		cells = r
	}
	start, _, _ := strings.Cut(cells, ":")
	digits := strings.TrimLeft(start, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	return row, err == nil && row > 0
}

func (s *InvoiceSheet) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *InvoiceSheet) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache drops the row index.
func (s *InvoiceSheet) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}
