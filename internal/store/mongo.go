package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/status"
)

const (
	paymentsCollection = "payments"
	evidenceCollection = "evidence"
)

var _ Repository = (*MongoRepository)(nil)

// MongoRepository stores payments and evidence in two MongoDB collections.
type MongoRepository struct {
	payments *mongo.Collection
	evidence *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		payments: db.Collection(paymentsCollection),
		evidence: db.Collection(evidenceCollection),
	}
}

// EnsureIndexes creates the indexes used by evidence lookups and due date scans.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.evidence.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "payment_id", Value: 1}, {Key: "uploaded_at", Value: -1}},
	}); err != nil {
		log.Printf("Failed to create evidence indexes: %v", err)
		return fmt.Errorf("failed to create evidence indexes: %w", err)
	}
	if _, err := r.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "payee_due_date", Value: 1}},
	}); err != nil {
		log.Printf("Failed to create payment indexes: %v", err)
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

// SearchFilter builds the query matching search as a case-insensitive
// substring of any of SearchFields. An empty search matches everything.
func SearchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	or := make(bson.A, 0, len(SearchFields))
	for _, field := range SearchFields {
		or = append(or, bson.M{field: pattern})
	}
	return bson.M{"$or": or}
}

func (r *MongoRepository) FindPayments(ctx context.Context, search string, skip, limit int64) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSkip(skip).SetLimit(limit)
	cur, err := r.payments.Find(ctx, SearchFilter(search), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	defer cur.Close(ctx)

	payments := []models.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

func (r *MongoRepository) CountPayments(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.payments.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) FindPayment(ctx context.Context, id string) (*models.Payment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payment models.Payment
	if err := r.payments.FindOne(ctx, bson.M{"_id": objID}).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return &payment, nil
}

func (r *MongoRepository) InsertPayment(ctx context.Context, p *models.Payment) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := *p
	doc.ID = ""
	result, err := r.payments.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	return insertedHex(result.InsertedID), nil
}

func (r *MongoRepository) InsertPayments(ctx context.Context, ps []models.Payment) error {
	if len(ps) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs := make([]interface{}, len(ps))
	for i := range ps {
		doc := ps[i]
		doc.ID = ""
		docs[i] = doc
	}
	_, err := r.payments.InsertMany(ctx, docs)
	return err
}

func (r *MongoRepository) UpdatePaymentFields(ctx context.Context, id string, due models.Date, dueAmount float64, s status.Status) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"payee_due_date":       due,
			"due_amount":           dueAmount,
			"payee_payment_status": s,
		},
	}
	result, err := r.payments.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (r *MongoRepository) DeletePayment(ctx context.Context, id string) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.payments.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// InsertEvidence stores e with its payment id as an ObjectID, matching the
// _id of the payment it belongs to.
func (r *MongoRepository) InsertEvidence(ctx context.Context, e *models.Evidence) (string, error) {
	paymentID, err := primitive.ObjectIDFromHex(e.PaymentID)
	if err != nil {
		return "", fmt.Errorf("invalid payment id %q: %w", e.PaymentID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	doc := bson.D{
		{Key: "payment_id", Value: paymentID},
		{Key: "filename", Value: e.Filename},
		{Key: "content_type", Value: e.ContentType},
		{Key: "content", Value: e.Content},
		{Key: "uploaded_at", Value: e.UploadedAt},
	}
	result, err := r.evidence.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	return insertedHex(result.InsertedID), nil
}

func (r *MongoRepository) FindLatestEvidence(ctx context.Context, paymentID string) (*models.Evidence, error) {
	oid, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "uploaded_at", Value: -1}, {Key: "_id", Value: -1}})
	var evidence models.Evidence
	if err := r.evidence.FindOne(ctx, bson.M{"payment_id": oid}, opts).Decode(&evidence); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch evidence: %w", err)
	}
	return &evidence, nil
}

func (r *MongoRepository) CountEvidence(ctx context.Context, paymentID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.evidence.CountDocuments(ctx, bson.M{"payment_id": oid})
	if err != nil {
		return 0, fmt.Errorf("failed to count evidence: %w", err)
	}
	return n, nil
}

func insertedHex(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}
