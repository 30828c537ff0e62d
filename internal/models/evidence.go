package models

import "time"

// Evidence is an uploaded proof-of-payment file. PaymentID is the hex form
// of the ObjectID stored in payment_id.
type Evidence struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	PaymentID   string    `bson:"payment_id" json:"payment_id"`
	Filename    string    `bson:"filename" json:"filename"`
	ContentType string    `bson:"content_type" json:"content_type"`
	Content     []byte    `bson:"content" json:"-"`
	UploadedAt  time.Time `bson:"uploaded_at" json:"uploaded_at"`
}
