package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/paymentserver/internal/status"
)

var hundred = decimal.NewFromInt(100)

// Payment is a billable invoice owed by a payee.
type Payment struct {
	ID                   string        `bson:"_id,omitempty" json:"id"`
	PayeeFirstName       string        `bson:"payee_first_name" json:"payee_first_name" validate:"required"`
	PayeeLastName        string        `bson:"payee_last_name" json:"payee_last_name" validate:"required"`
	PayeePaymentStatus   status.Status `bson:"payee_payment_status" json:"payee_payment_status" validate:"required"`
	PayeeAddedDateUTC    *time.Time    `bson:"payee_added_date_utc" json:"payee_added_date_utc" validate:"required"`
	PayeeDueDate         Date          `bson:"payee_due_date" json:"payee_due_date" validate:"required"`
	PayeeAddressLine1    string        `bson:"payee_address_line_1" json:"payee_address_line_1" validate:"required"`
	PayeeAddressLine2    string        `bson:"payee_address_line_2,omitempty" json:"payee_address_line_2,omitempty"`
	PayeeCity            string        `bson:"payee_city" json:"payee_city" validate:"required"`
	PayeeCountry         string        `bson:"payee_country" json:"payee_country" validate:"required"`
	PayeeProvinceOrState string        `bson:"payee_province_or_state,omitempty" json:"payee_province_or_state,omitempty"`
	PayeePostalCode      string        `bson:"payee_postal_code" json:"payee_postal_code" validate:"required"`
	PayeePhoneNumber     string        `bson:"payee_phone_number" json:"payee_phone_number" validate:"required"`
	PayeeEmail           string        `bson:"payee_email" json:"payee_email" validate:"required,email"`
	Currency             string        `bson:"currency" json:"currency" validate:"required"`
	DiscountPercent      float64       `bson:"discount_percent" json:"discount_percent" validate:"gte=0"`
	TaxPercent           float64       `bson:"tax_percent" json:"tax_percent" validate:"gte=0"`
	DueAmount            float64       `bson:"due_amount" json:"due_amount" validate:"gte=0"`
}

// TotalDue is the due amount after discount and tax. It is never stored.
func (p Payment) TotalDue() float64 {
	amount := decimal.NewFromFloat(p.DueAmount)
	discount := amount.Mul(decimal.NewFromFloat(p.DiscountPercent)).Div(hundred)
	tax := amount.Mul(decimal.NewFromFloat(p.TaxPercent)).Div(hundred)
	total, _ := amount.Sub(discount).Add(tax).Float64()
	return total
}

// EffectiveStatus applies the status rules to the stored status as of today.
func (p Payment) EffectiveStatus(today time.Time) status.Status {
	return status.Effective(p.PayeePaymentStatus, p.PayeeDueDate.Time, today)
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type payment Payment
	return json.Marshal(struct {
		payment
		TotalDue float64 `json:"total_due"`
	}{payment(p), p.TotalDue()})
}
