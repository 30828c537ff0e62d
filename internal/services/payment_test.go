package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/status"
	"github.com/markjakearzadon/paymentserver/internal/store/storetest"
)

var fixedNow = time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*PaymentService, *storetest.Memory) {
	t.Helper()
	repo := storetest.NewMemory()
	return NewPaymentService(repo, WithClock(func() time.Time { return fixedNow })), repo
}

func samplePayment() *models.Payment {
	added := time.Date(2025, time.January, 5, 8, 30, 0, 0, time.UTC)
	return &models.Payment{
		PayeeFirstName:     "Grace",
		PayeeLastName:      "Hopper",
		PayeePaymentStatus: status.Pending,
		PayeeAddedDateUTC:  &added,
		PayeeDueDate:       models.NewDate(2025, time.April, 1),
		PayeeAddressLine1:  "1 Navy Way",
		PayeeCity:          "Arlington",
		PayeeCountry:       "US",
		PayeePostalCode:    "22202",
		PayeePhoneNumber:   "+15550100",
		PayeeEmail:         "grace@example.com",
		Currency:           "USD",
		DueAmount:          100,
	}
}

func TestCreatePayment(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	p := samplePayment()
	p.ID = "client-supplied"
	id, err := svc.CreatePayment(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, "client-supplied", id)

	stored := repo.Payments()
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)
	assert.Equal(t, "Grace", stored[0].PayeeFirstName)
	assert.Equal(t, status.Pending, stored[0].PayeePaymentStatus)
	assert.Equal(t, "2025-04-01", stored[0].PayeeDueDate.String())
}

func TestCreatePaymentRejectsNonPendingStatus(t *testing.T) {
	for _, s := range []status.Status{status.DueNow, status.Completed, status.Overdue, "paid", ""} {
		t.Run(string(s), func(t *testing.T) {
			svc, repo := newTestService(t)
			p := samplePayment()
			p.PayeePaymentStatus = s

			_, err := svc.CreatePayment(context.Background(), p)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, repo.Payments())
		})
	}
}

func TestCreatePaymentPersistenceError(t *testing.T) {
	svc, repo := newTestService(t)
	repo.FailInsert = errors.New("connection reset")

	_, err := svc.CreatePayment(context.Background(), samplePayment())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert payment", perr.Op)
	assert.ErrorIs(t, err, repo.FailInsert)
}

func TestListPaymentsAppliesEffectiveStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	yesterday := samplePayment()
	yesterday.PayeeFirstName = "Yesterday"
	yesterday.PayeeDueDate = models.NewDate(2025, time.March, 9)

	today := samplePayment()
	today.PayeeFirstName = "Today"
	today.PayeeDueDate = models.NewDate(2025, time.March, 10)

	future := samplePayment()
	future.PayeeFirstName = "Future"
	future.PayeeDueDate = models.NewDate(2025, time.March, 11)

	for _, p := range []*models.Payment{yesterday, today, future} {
		_, err := svc.CreatePayment(ctx, p)
		require.NoError(t, err)
	}

	payments, total, err := svc.ListPayments(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, payments, 3)

	got := map[string]status.Status{}
	for _, p := range payments {
		got[p.PayeeFirstName] = p.PayeePaymentStatus
	}
	assert.Equal(t, status.Overdue, got["Yesterday"])
	assert.Equal(t, status.DueNow, got["Today"])
	assert.Equal(t, status.Pending, got["Future"])
}

func TestListPaymentsKeepsCompleted(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	p := samplePayment()
	p.PayeeDueDate = models.NewDate(2025, time.March, 1)
	id, err := svc.CreatePayment(ctx, p)
	require.NoError(t, err)
	_, err = repo.InsertEvidence(ctx, &models.Evidence{PaymentID: id, Filename: "receipt.pdf"})
	require.NoError(t, err)

	p.PayeePaymentStatus = status.Completed
	require.NoError(t, svc.UpdatePayment(ctx, id, p))

	payments, _, err := svc.ListPayments(ctx, "", 1, 20)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, status.Completed, payments[0].PayeePaymentStatus)
}

func TestListPaymentsSearchAndPaging(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, city := range []string{"Springfield", "ACME Town", "Shelbyville", "Acmeville", "Ogdenville"} {
		p := samplePayment()
		p.PayeeFirstName = []string{"a", "b", "c", "d", "e"}[i]
		p.PayeeCity = city
		_, err := svc.CreatePayment(ctx, p)
		require.NoError(t, err)
	}

	payments, total, err := svc.ListPayments(ctx, "acme", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total, "total ignores the search filter")
	require.Len(t, payments, 2)
	assert.Equal(t, "ACME Town", payments[0].PayeeCity)
	assert.Equal(t, "Acmeville", payments[1].PayeeCity)

	page, total, err := svc.ListPayments(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].PayeeFirstName)
	assert.Equal(t, "d", page[1].PayeeFirstName)

	last, _, err := svc.ListPayments(ctx, "", 3, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "e", last[0].PayeeFirstName)
}

func TestUpdatePayment(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreatePayment(ctx, samplePayment())
	require.NoError(t, err)

	update := samplePayment()
	update.PayeeFirstName = "Ignored"
	update.PayeeDueDate = models.NewDate(2025, time.May, 15)
	update.DueAmount = 250
	update.PayeePaymentStatus = status.Overdue
	require.NoError(t, svc.UpdatePayment(ctx, id, update))

	stored := repo.Payments()[0]
	assert.Equal(t, "Grace", stored.PayeeFirstName, "only due date, amount and status are updated")
	assert.Equal(t, "2025-05-15", stored.PayeeDueDate.String())
	assert.Equal(t, 250.0, stored.DueAmount)
	assert.Equal(t, status.Overdue, stored.PayeePaymentStatus)
}

func TestUpdatePaymentErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid status", func(t *testing.T) {
		svc, _ := newTestService(t)
		id, err := svc.CreatePayment(ctx, samplePayment())
		require.NoError(t, err)

		p := samplePayment()
		p.PayeePaymentStatus = "refunded"
		assert.ErrorIs(t, svc.UpdatePayment(ctx, id, p), ErrValidation)
	})

	t.Run("missing payment", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.UpdatePayment(ctx, "000000000000000000000042", samplePayment())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.EqualError(t, err, "Payment not found")
	})

	t.Run("completed without evidence", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreatePayment(ctx, samplePayment())
		require.NoError(t, err)

		p := samplePayment()
		p.PayeePaymentStatus = status.Completed
		err = svc.UpdatePayment(ctx, id, p)
		assert.ErrorIs(t, err, ErrPreconditionFailed)
		assert.Equal(t, status.Pending, repo.Payments()[0].PayeePaymentStatus)
	})

	t.Run("completed with evidence", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreatePayment(ctx, samplePayment())
		require.NoError(t, err)
		_, err = svc.CreateEvidence(ctx, id, []byte("%PDF-1.4"), "receipt.pdf", "application/pdf")
		require.NoError(t, err)

		p := samplePayment()
		p.PayeePaymentStatus = status.Completed
		require.NoError(t, svc.UpdatePayment(ctx, id, p))
		assert.Equal(t, status.Completed, repo.Payments()[0].PayeePaymentStatus)
	})
}

func TestDeletePayment(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreatePayment(ctx, samplePayment())
	require.NoError(t, err)
	_, err = svc.CreateEvidence(ctx, id, []byte("png"), "proof.png", "image/png")
	require.NoError(t, err)

	require.NoError(t, svc.DeletePayment(ctx, id))
	assert.Empty(t, repo.Payments())
	assert.Len(t, repo.Evidence(), 1, "evidence is not cascaded")

	assert.ErrorIs(t, svc.DeletePayment(ctx, id), ErrNotFound)
}

func TestDeletePaymentNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.DeletePayment(context.Background(), "does-not-exist"), ErrNotFound)
}

func TestEvidence(t *testing.T) {
	ctx := context.Background()

	t.Run("upload requires payment", func(t *testing.T) {
		svc, repo := newTestService(t)
		_, err := svc.CreateEvidence(ctx, "000000000000000000000042", []byte("x"), "a.pdf", "application/pdf")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, repo.Evidence())
	})

	t.Run("download missing", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.GetEvidence(ctx, "000000000000000000000042")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.EqualError(t, err, "Evidence not found")
	})

	t.Run("download returns latest upload", func(t *testing.T) {
		repo := storetest.NewMemory()
		now := fixedNow
		svc := NewPaymentService(repo, WithClock(func() time.Time { return now }))

		id, err := svc.CreatePayment(ctx, samplePayment())
		require.NoError(t, err)
		_, err = svc.CreateEvidence(ctx, id, []byte("first"), "first.pdf", "application/pdf")
		require.NoError(t, err)
		now = now.Add(time.Minute)
		_, err = svc.CreateEvidence(ctx, id, []byte("second"), "second.png", "image/png")
		require.NoError(t, err)

		evidence, err := svc.GetEvidence(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "second.png", evidence.Filename)
		assert.Equal(t, []byte("second"), evidence.Content)
		assert.Equal(t, "image/png", evidence.ContentType)
		assert.Len(t, repo.Evidence(), 2)
	})

	t.Run("persistence failure", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreatePayment(ctx, samplePayment())
		require.NoError(t, err)
		repo.FailEvidence = errors.New("disk full")

		_, err = svc.CreateEvidence(ctx, id, []byte("x"), "a.pdf", "application/pdf")
		var perr *PersistenceError
		assert.ErrorAs(t, err, &perr)
	})
}

func TestScenarioCreatedYesterdayListsOverdue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p := samplePayment()
	p.PayeeDueDate = models.DateOf(fixedNow.AddDate(0, 0, -1))
	_, err := svc.CreatePayment(ctx, p)
	require.NoError(t, err)

	payments, _, err := svc.ListPayments(ctx, "", 1, 20)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, status.Overdue, payments[0].PayeePaymentStatus)
}

func TestUpdatePaymentDeletedBeforeWrite(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreatePayment(ctx, samplePayment())
	require.NoError(t, err)

	repo.BeforeUpdate = func() {
		_, err := repo.DeletePayment(ctx, id)
		require.NoError(t, err)
	}

	update := samplePayment()
	update.PayeePaymentStatus = status.Overdue
	err = svc.UpdatePayment(ctx, id, update)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Payment not found for id "+id)
	assert.Empty(t, repo.Payments())
}

func TestListPaymentsRejectsOverflowingSkip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.ListPayments(ctx, "", math.MaxInt64, 2)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "page number is too large for page size 2")

	_, _, err = svc.ListPayments(ctx, "", math.MaxInt64, 1)
	assert.NoError(t, err, "the last page that still fits is accepted")
}
