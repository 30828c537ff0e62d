package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/status"
)

// Rows missing any of these are dropped on import.
var requiredColumns = []string{
	"payee_address_line_1",
	"payee_city",
	"payee_country",
	"payee_postal_code",
	"payee_phone_number",
	"payee_email",
	"currency",
}

// Cell values read as missing, on top of the empty string.
var missingValues = map[string]bool{
	"na": true, "n/a": true, "#n/a": true, "<na>": true,
	"nan": true, "null": true, "none": true,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006",
}

// ImportFile loads payments from the CSV file at path unless payments are
// already stored, in which case the file is not opened at all. It returns the
// number of payments inserted.
func (s *PaymentService) ImportFile(ctx context.Context, path string) (int, error) {
	if skip, err := s.hasPayments(ctx); err != nil || skip {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("Failed to open import file %s: %v", path, err)
		return 0, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return s.importCSV(ctx, f)
}

// Import loads payments from CSV read from r unless payments are already
// stored. The header row names the columns, using the payment JSON field
// names. Rows missing a required field are dropped; every other malformed
// value is coerced to a zero or null value rather than rejected. All
// surviving rows are inserted in a single batch.
func (s *PaymentService) Import(ctx context.Context, r io.Reader) (int, error) {
	if skip, err := s.hasPayments(ctx); err != nil || skip {
		return 0, err
	}
	return s.importCSV(ctx, r)
}

func (s *PaymentService) hasPayments(ctx context.Context) (bool, error) {
	n, err := s.repo.CountPayments(ctx)
	if err != nil {
		log.Printf("Failed to count payments before import: %v", err)
		return false, &PersistenceError{Op: "count payments", Err: err}
	}
	if n > 0 {
		log.Printf("Skipping import: %d payments already stored", n)
		return true, nil
	}
	return false, nil
}

func (s *PaymentService) importCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		log.Printf("Import file is empty, nothing to import")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read import header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return 0, newError(ErrValidation, "import file is missing required column %q", name)
		}
	}

	today := s.now()
	payments := []models.Payment{}
	dropped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read import file: %w", err)
		}

		row := csvRow{columns: columns, record: record}
		payment, ok := row.payment()
		if !ok {
			dropped++
			continue
		}
		payment.PayeePaymentStatus = payment.EffectiveStatus(today)
		payments = append(payments, payment)
	}

	if err := s.repo.InsertPayments(ctx, payments); err != nil {
		log.Printf("An error occurred while importing payments: %v", err)
		return 0, &PersistenceError{Op: "import payments", Err: err}
	}

	log.Printf("Imported %d payments, dropped %d incomplete rows", len(payments), dropped)
	return len(payments), nil
}

type csvRow struct {
	columns map[string]int
	record  []string
}

// get returns the trimmed cell of a column, or "" when absent or missing.
func (r csvRow) get(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	v := strings.TrimSpace(r.record[i])
	if missingValues[strings.ToLower(v)] {
		return ""
	}
	return v
}

func (r csvRow) payment() (models.Payment, bool) {
	for _, name := range requiredColumns {
		if r.get(name) == "" {
			return models.Payment{}, false
		}
	}

	p := models.Payment{
		PayeeFirstName:       r.get("payee_first_name"),
		PayeeLastName:        r.get("payee_last_name"),
		PayeePaymentStatus:   status.Status(r.get("payee_payment_status")),
		PayeeAddedDateUTC:    utc(parseTimestamp(r.get("payee_added_date_utc"))),
		PayeeAddressLine1:    r.get("payee_address_line_1"),
		PayeeAddressLine2:    r.get("payee_address_line_2"),
		PayeeCity:            r.get("payee_city"),
		PayeeCountry:         r.get("payee_country"),
		PayeeProvinceOrState: r.get("payee_province_or_state"),
		PayeePostalCode:      r.get("payee_postal_code"),
		PayeePhoneNumber:     r.get("payee_phone_number"),
		PayeeEmail:           r.get("payee_email"),
		Currency:             r.get("currency"),
		DiscountPercent:      parseNumber(r.get("discount_percent")),
		TaxPercent:           parseNumber(r.get("tax_percent")),
		DueAmount:            parseNumber(r.get("due_amount")),
	}
	// The due date is the calendar day in the offset it was written with.
	if due := parseTimestamp(r.get("payee_due_date")); due != nil {
		p.PayeeDueDate = models.DateOf(*due)
	}
	if !status.Valid(p.PayeePaymentStatus) {
		p.PayeePaymentStatus = status.Pending
	}
	return p, true
}

// parseTimestamp returns nil for empty or unparsable values. Values without
// an offset are read as UTC; values with one keep it.
func parseTimestamp(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// parseNumber returns 0 for empty or unparsable values.
func parseNumber(v string) float64 {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
