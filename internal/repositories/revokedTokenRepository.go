package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"supplierhub/internal/database"
	"supplierhub/internal/utils"
)

// RevokedTokenRepository is a blacklist shared by every process using the
// same database. A TTL index drops entries once the token would have expired.
type RevokedTokenRepository interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type revokedTokenRepository struct {
	db database.Service
}

func NewRevokedTokenRepository(db database.Service) RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

func (r *revokedTokenRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.RevokedTokensCollection)
}

func (r *revokedTokenRepository) Add(ctx context.Context, token string, expiresAt time.Time) (err error) {
	defer utils.ObserveQuery("add", "revoked_token")(&err)

	doc := bson.M{"token": token, "expiresAt": expiresAt, "revokedAt": time.Now()}
	_, err = r.collection().InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *revokedTokenRepository) Contains(ctx context.Context, token string) (found bool, err error) {
	defer utils.ObserveQuery("contains", "revoked_token")(&err)

	count, err := r.collection().CountDocuments(ctx, bson.M{"token": token})
	if err != nil {
		return false, fmt.Errorf("failed to look up revoked token: %w", err)
	}
	return count > 0, nil
}

func (r *revokedTokenRepository) Len(ctx context.Context) (n int, err error) {
	defer utils.ObserveQuery("count", "revoked_token")(&err)

	count, err := r.collection().EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count revoked tokens: %w", err)
	}
	return int(count), nil
}

func (r *revokedTokenRepository) Clear(ctx context.Context) (err error) {
	defer utils.ObserveQuery("clear", "revoked_token")(&err)

	if _, err = r.collection().DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear revoked tokens: %w", err)
	}
	return nil
}
