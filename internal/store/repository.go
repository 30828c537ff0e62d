package store

import (
	"context"
	"errors"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/status"
)

// ErrNotFound is returned when a single document lookup matches nothing.
var ErrNotFound = errors.New("document not found")

// SearchFields are the payment fields matched by a free-text search.
var SearchFields = []string{
	"payee_first_name",
	"payee_last_name",
	"payee_email",
	"payee_payment_status",
	"payee_address_line_1",
	"payee_address_line_2",
	"payee_city",
	"payee_country",
	"payee_province_or_state",
	"payee_postal_code",
	"payee_phone_number",
	"currency",
}

// Repository is the document store behind the payment service. Each call is
// atomic on its own; nothing spans more than one call.
type Repository interface {
	// FindPayments returns payments matching search (all when empty), skipping
	// skip documents and returning at most limit. A limit of 0 means no limit.
	FindPayments(ctx context.Context, search string, skip, limit int64) ([]models.Payment, error)
	// CountPayments counts every stored payment, regardless of any filter.
	CountPayments(ctx context.Context) (int64, error)
	FindPayment(ctx context.Context, id string) (*models.Payment, error)
	InsertPayment(ctx context.Context, p *models.Payment) (string, error)
	InsertPayments(ctx context.Context, ps []models.Payment) error
	// UpdatePaymentFields overwrites due date, due amount and status and
	// reports how many documents matched id.
	UpdatePaymentFields(ctx context.Context, id string, due models.Date, dueAmount float64, s status.Status) (int64, error)
	// DeletePayment reports how many documents were deleted.
	DeletePayment(ctx context.Context, id string) (int64, error)

	InsertEvidence(ctx context.Context, e *models.Evidence) (string, error)
	// FindLatestEvidence returns the most recently uploaded evidence of a payment.
	FindLatestEvidence(ctx context.Context, paymentID string) (*models.Evidence, error)
	CountEvidence(ctx context.Context, paymentID string) (int64, error)
}
