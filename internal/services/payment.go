package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/status"
	"github.com/markjakearzadon/paymentserver/internal/store"
)

// PaymentService applies the payment rules on top of a store.Repository.
// It keeps no state of its own between calls.
type PaymentService struct {
	repo store.Repository
	now  func() time.Time
}

type Option func(*PaymentService)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

func NewPaymentService(repo store.Repository, opts ...Option) *PaymentService {
	s := &PaymentService{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPayments returns one page of payments matching search, with their
// effective status, plus the number of stored payments. The total ignores
// search and paging. Page bounds are not checked: a page number below 1
// produces a negative skip and a page size of 0 means no limit. Pages whose
// skip does not fit in an int64 are rejected.
func (s *PaymentService) ListPayments(ctx context.Context, search string, pageNumber, pageSize int) ([]models.Payment, int64, error) {
	if pageSize > 0 && pageNumber > 1 && int64(pageNumber-1) > math.MaxInt64/int64(pageSize) {
		return nil, 0, newError(ErrValidation, "page number is too large for page size %d", pageSize)
	}
	skip := int64(pageNumber-1) * int64(pageSize)

	payments, err := s.repo.FindPayments(ctx, search, skip, int64(pageSize))
	if err != nil {
		log.Printf("Failed to fetch payments: %v", err)
		return nil, 0, &PersistenceError{Op: "fetch payments", Err: err}
	}

	total, err := s.repo.CountPayments(ctx)
	if err != nil {
		log.Printf("Failed to count payments: %v", err)
		return nil, 0, &PersistenceError{Op: "count payments", Err: err}
	}

	today := s.now()
	for i := range payments {
		payments[i].PayeePaymentStatus = payments[i].EffectiveStatus(today)
	}
	return payments, total, nil
}

// CreatePayment stores a new pending payment and returns its id.
func (s *PaymentService) CreatePayment(ctx context.Context, payment *models.Payment) (string, error) {
	if payment.PayeePaymentStatus != status.Pending {
		return "", newError(ErrValidation, "payment status can only be pending when creating a payment")
	}

	doc := *payment
	doc.ID = ""
	doc.PayeeDueDate = models.DateOf(doc.PayeeDueDate.Time)
	if doc.PayeeAddedDateUTC != nil {
		added := doc.PayeeAddedDateUTC.UTC()
		doc.PayeeAddedDateUTC = &added
	}

	id, err := s.repo.InsertPayment(ctx, &doc)
	if err != nil {
		log.Printf("An error occurred while inserting the payment: %v", err)
		return "", &PersistenceError{Op: "insert payment", Err: err}
	}

	log.Printf("Payment created: ID=%s, DueDate=%s, DueAmount=%.2f", id, doc.PayeeDueDate, doc.DueAmount)
	return id, nil
}

// UpdatePayment overwrites the due date, due amount and status of an
// existing payment. The status is stored as given; reads recompute the
// effective status. Completing a payment requires at least one evidence.
func (s *PaymentService) UpdatePayment(ctx context.Context, id string, payment *models.Payment) error {
	if !status.Valid(payment.PayeePaymentStatus) {
		return newError(ErrValidation, "payment status must be one of: pending, due_now, completed, overdue")
	}

	if _, err := s.findPayment(ctx, id); err != nil {
		return err
	}

	if payment.PayeePaymentStatus == status.Completed {
		n, err := s.repo.CountEvidence(ctx, id)
		if err != nil {
			log.Printf("Failed to count evidence for payment %s: %v", id, err)
			return &PersistenceError{Op: "count evidence", Err: err}
		}
		if n == 0 {
			return newError(ErrPreconditionFailed, "Unable to mark a payment as completed without evidence")
		}
	}

	// The evidence check and the write are separate store calls.
	matched, err := s.repo.UpdatePaymentFields(ctx, id,
		models.DateOf(payment.PayeeDueDate.Time), payment.DueAmount, payment.PayeePaymentStatus)
	if err != nil {
		log.Printf("Failed to update payment %s: %v", id, err)
		return &PersistenceError{Op: "update payment", Err: err}
	}
	if matched == 0 {
		return newError(ErrNotFound, "Payment not found for id %s", id)
	}

	log.Printf("Payment updated: ID=%s, Status=%s", id, payment.PayeePaymentStatus)
	return nil
}

// DeletePayment removes a payment. Its evidence is left in place.
func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	deleted, err := s.repo.DeletePayment(ctx, id)
	if err != nil {
		log.Printf("Failed to delete payment %s: %v", id, err)
		return &PersistenceError{Op: "delete payment", Err: err}
	}
	if deleted == 0 {
		return newError(ErrNotFound, "Payment not found")
	}

	log.Printf("Payment deleted: ID=%s", id)
	return nil
}

// CreateEvidence attaches an uploaded file to an existing payment. A payment
// may have any number of evidence files.
func (s *PaymentService) CreateEvidence(ctx context.Context, paymentID string, content []byte, filename, contentType string) (string, error) {
	if _, err := s.findPayment(ctx, paymentID); err != nil {
		return "", err
	}

	evidence := &models.Evidence{
		PaymentID:   paymentID,
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		UploadedAt:  s.now().UTC(),
	}
	id, err := s.repo.InsertEvidence(ctx, evidence)
	if err != nil {
		log.Printf("An error occurred while inserting the evidence: %v", err)
		return "", &PersistenceError{Op: "insert evidence", Err: err}
	}

	log.Printf("Evidence stored: ID=%s, PaymentID=%s, Filename=%s, Size=%d", id, paymentID, filename, len(content))
	return id, nil
}

// GetEvidence returns the most recently uploaded evidence of a payment.
func (s *PaymentService) GetEvidence(ctx context.Context, paymentID string) (*models.Evidence, error) {
	evidence, err := s.repo.FindLatestEvidence(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrNotFound, "Evidence not found")
		}
		log.Printf("Failed to fetch evidence for payment %s: %v", paymentID, err)
		return nil, &PersistenceError{Op: "fetch evidence", Err: err}
	}
	return evidence, nil
}

func (s *PaymentService) findPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindPayment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrNotFound, "Payment not found")
		}
		log.Printf("Failed to fetch payment %s: %v", id, err)
		return nil, &PersistenceError{Op: "fetch payment", Err: err}
	}
	return payment, nil
}
