// Package storetest provides an in-memory store.Repository for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/status"
	"github.com/markjakearzadon/paymentserver/internal/store"
)

var _ store.Repository = (*Memory)(nil)

// Memory keeps payments and evidence in insertion order. Setting one of the
// Fail fields makes the matching write return that error. BeforeUpdate, when
// set, runs at the start of UpdatePaymentFields without the lock held.
type Memory struct {
	mu       sync.Mutex
	seq      int
	payments []models.Payment
	evidence []models.Evidence

	FailInsert   error
	FailEvidence error
	BeforeUpdate func()
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) nextID() string {
	m.seq++
	return fmt.Sprintf("%024x", m.seq)
}

// Payments returns a copy of every stored payment as written.
func (m *Memory) Payments() []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Payment(nil), m.payments...)
}

// Evidence returns a copy of every stored evidence record.
func (m *Memory) Evidence() []models.Evidence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Evidence(nil), m.evidence...)
}

func (m *Memory) FindPayments(_ context.Context, search string, skip, limit int64) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []models.Payment{}
	for _, p := range m.payments {
		if search == "" || matches(p, search) {
			matched = append(matched, p)
		}
	}
	if skip < 0 {
		return nil, fmt.Errorf("skip value must be non-negative, but received: %d", skip)
	}
	if skip >= int64(len(matched)) {
		return []models.Payment{}, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < int64(len(matched)) {
		matched = matched[:limit]
	}
	return matched, nil
}

func matches(p models.Payment, search string) bool {
	needle := strings.ToLower(search)
	for _, v := range []string{
		p.PayeeFirstName, p.PayeeLastName, p.PayeeEmail, string(p.PayeePaymentStatus),
		p.PayeeAddressLine1, p.PayeeAddressLine2, p.PayeeCity, p.PayeeCountry,
		p.PayeeProvinceOrState, p.PayeePostalCode, p.PayeePhoneNumber, p.Currency,
	} {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func (m *Memory) CountPayments(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.payments)), nil
}

func (m *Memory) FindPayment(_ context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) InsertPayment(_ context.Context, p *models.Payment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert != nil {
		return "", m.FailInsert
	}
	doc := *p
	doc.ID = m.nextID()
	m.payments = append(m.payments, doc)
	return doc.ID, nil
}

func (m *Memory) InsertPayments(_ context.Context, ps []models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert != nil {
		return m.FailInsert
	}
	for _, p := range ps {
		p.ID = m.nextID()
		m.payments = append(m.payments, p)
	}
	return nil
}

func (m *Memory) UpdatePaymentFields(_ context.Context, id string, due models.Date, dueAmount float64, s status.Status) (int64, error) {
	if m.BeforeUpdate != nil {
		m.BeforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.payments {
		if m.payments[i].ID == id {
			m.payments[i].PayeeDueDate = due
			m.payments[i].DueAmount = dueAmount
			m.payments[i].PayeePaymentStatus = s
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Memory) DeletePayment(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.payments {
		if m.payments[i].ID == id {
			m.payments = append(m.payments[:i], m.payments[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Memory) InsertEvidence(_ context.Context, e *models.Evidence) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEvidence != nil {
		return "", m.FailEvidence
	}
	doc := *e
	doc.ID = m.nextID()
	m.evidence = append(m.evidence, doc)
	return doc.ID, nil
}

func (m *Memory) FindLatestEvidence(_ context.Context, paymentID string) (*models.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []models.Evidence
	for _, e := range m.evidence {
		if e.PaymentID == paymentID {
			found = append(found, e)
		}
	}
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].UploadedAt.Equal(found[j].UploadedAt) {
			return found[i].UploadedAt.After(found[j].UploadedAt)
		}
		return found[i].ID > found[j].ID
	})
	return &found[0], nil
}

func (m *Memory) CountEvidence(_ context.Context, paymentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.evidence {
		if e.PaymentID == paymentID {
			n++
		}
	}
	return n, nil
}
