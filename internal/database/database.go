package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection         = "users"
	OTPsCollection          = "otps"
	SuppliersCollection     = "suppliers"
	RevokedTokensCollection = "revoked_tokens"
)

type Service interface {
	Health() map[string]string
	Client() *mongo.Client
	Database() *mongo.Database
	Close(ctx context.Context) error
}

type service struct {
	db     *mongo.Client
	dbName string
}

func New(ctx context.Context, uri, dbName string) (Service, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", dbName).Msg("Connected to MongoDB")
	return &service{db: client, dbName: dbName}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := s.db.Ping(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return map[string]string{
			"message": "db down",
			"error":   err.Error(),
		}
	}

	return map[string]string{
		"message": "It's healthy",
	}
}

func (s *service) Client() *mongo.Client {
	return s.db
}

func (s *service) Database() *mongo.Database {
	return s.db.Database(s.dbName)
}

func (s *service) Close(ctx context.Context) error {
	return s.db.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the auth flows rely on: unique phone on
// users and otps (one live code per phone), and a TTL index so revoked
// tokens disappear once they would have expired anyway.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetSparse(true),
		}},
		{OTPsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{OTPsCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
		}},
		{RevokedTokensCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{RevokedTokensCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		}},
	}

	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}
