package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"supplierhub/internal/database"
	"supplierhub/internal/models"
	"supplierhub/internal/utils"
)

type OTPRepository interface {
	// Upsert replaces any code for phone with code in one atomic write.
	Upsert(ctx context.Context, phone, code string, expiresAt, now time.Time) error
	// Consume removes and returns the record matching (phone, code) exactly.
	// Expired records are removed too; the caller decides how to report them.
	Consume(ctx context.Context, phone, code string) (*models.OTP, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepository struct {
	db database.Service
}

func NewOTPRepository(db database.Service) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.OTPsCollection)
}

func (r *otpRepository) Upsert(ctx context.Context, phone, code string, expiresAt, now time.Time) (err error) {
	defer utils.ObserveQuery("upsert", "otp")(&err)

	update := bson.M{"$set": bson.M{
		"phone":     phone,
		"code":      code,
		"expiresAt": expiresAt,
		"createdAt": now,
	}}
	_, err = r.collection().UpdateOne(ctx, bson.M{"phone": phone}, update, options.Update().SetUpsert(true))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Lost an insert race on the unique phone index; the document now
		// exists, so the retry is a plain update.
		_, err = r.collection().UpdateOne(ctx, bson.M{"phone": phone}, update)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert otp: %w", err)
	}
	return nil
}

func (r *otpRepository) Consume(ctx context.Context, phone, code string) (otp *models.OTP, err error) {
	defer utils.ObserveQuery("consume", "otp")(&err)

	var found models.OTP
	err = r.collection().FindOneAndDelete(ctx, bson.M{"phone": phone, "code": code}).Decode(&found)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}
	return &found, nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (n int64, err error) {
	defer utils.ObserveQuery("deleteExpired", "otp")(&err)

	result, err := r.collection().DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return result.DeletedCount, nil
}
