package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"supplierhub/internal/database"
	"supplierhub/internal/models"
	"supplierhub/internal/utils"
)

type SupplierRepository interface {
	FindByID(ctx context.Context, supplierID primitive.ObjectID) (*models.Supplier, error)
}

type supplierRepository struct {
	db database.Service
}

func NewSupplierRepository(db database.Service) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) FindByID(ctx context.Context, supplierID primitive.ObjectID) (supplier *models.Supplier, err error) {
	defer utils.ObserveQuery("findById", "supplier")(&err)

	var s models.Supplier
	err = r.db.Database().Collection(database.SuppliersCollection).FindOne(ctx, bson.M{"_id": supplierID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find supplier: %w", err)
	}
	return &s, nil
}
