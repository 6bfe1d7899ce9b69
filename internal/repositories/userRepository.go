package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"supplierhub/internal/database"
	"supplierhub/internal/models"
	"supplierhub/internal/utils"
)

// ErrNotFound is returned when a lookup by key matches no document.
var ErrNotFound = errors.New("not found")

type UserRepository interface {
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	// FindOrCreateByPhone returns the user for phone, inserting an
	// unverified one if none exists. created reports whether this call did
	// the insert. Concurrent callers for the same phone all observe the same
	// document.
	FindOrCreateByPhone(ctx context.Context, phone string, now time.Time) (user *models.User, created bool, err error)
	// RecordLogin marks the user verified and moves the revocation
	// watermark to now in a single update.
	RecordLogin(ctx context.Context, userID primitive.ObjectID, deviceInfo string, now time.Time) (*models.User, error)
	SetWatermark(ctx context.Context, userID primitive.ObjectID, at time.Time) error
	SetPasswordHash(ctx context.Context, userID primitive.ObjectID, hash string, now time.Time) error
}

type userRepository struct {
	db database.Service
}

func NewUserRepository(db database.Service) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.UsersCollection)
}

func (r *userRepository) FindByID(ctx context.Context, userID primitive.ObjectID) (user *models.User, err error) {
	defer utils.ObserveQuery("findById", "user")(&err)
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (user *models.User, err error) {
	defer utils.ObserveQuery("findByPhone", "user")(&err)
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection().FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindOrCreateByPhone(ctx context.Context, phone string, now time.Time) (user *models.User, created bool, err error) {
	defer utils.ObserveQuery("findOrCreateByPhone", "user")(&err)

	update := bson.M{"$setOnInsert": bson.M{
		"phone":            phone,
		"isVerified":       false,
		"profileCompleted": false,
		"createdAt":        now,
		"updatedAt":        now,
	}}
	result, err := r.collection().UpdateOne(ctx, bson.M{"phone": phone}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		log.Error().Err(err).Msg("Failed to upsert user by phone")
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	created = err == nil && result.UpsertedCount > 0

	// A duplicate key means a concurrent request inserted the same phone
	// first; the document exists either way.
	user, err = r.findOne(ctx, bson.M{"phone": phone})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func (r *userRepository) RecordLogin(ctx context.Context, userID primitive.ObjectID, deviceInfo string, now time.Time) (user *models.User, err error) {
	defer utils.ObserveQuery("recordLogin", "user")(&err)

	update := bson.M{"$set": bson.M{
		"isVerified":      true,
		"lastLogin":       now,
		"deviceInfo":      deviceInfo,
		"lastTokenIssued": now,
		"updatedAt":       now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.User
	err = r.collection().FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to record login")
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return &updated, nil
}

func (r *userRepository) SetWatermark(ctx context.Context, userID primitive.ObjectID, at time.Time) (err error) {
	defer utils.ObserveQuery("setWatermark", "user")(&err)
	return r.set(ctx, userID, bson.M{"lastTokenIssued": at, "updatedAt": at})
}

func (r *userRepository) SetPasswordHash(ctx context.Context, userID primitive.ObjectID, hash string, now time.Time) (err error) {
	defer utils.ObserveQuery("setPasswordHash", "user")(&err)
	return r.set(ctx, userID, bson.M{"passwordHash": hash, "updatedAt": now})
}

func (r *userRepository) set(ctx context.Context, userID primitive.ObjectID, fields bson.M) error {
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error updating user")
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
