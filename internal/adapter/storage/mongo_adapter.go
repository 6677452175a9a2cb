package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

const storesCollection = "stores"

type storeDocument struct {
	UserID    int64            `bson:"userId"`
	Email     string           `bson:"email"`
	Products  []domain.Product `bson:"products"`
	Version   int64            `bson:"version"`
	UpdatedAt time.Time        `bson:"updatedAt"`
}

// MongoAdapter keeps one document per store with the products embedded.
type MongoAdapter struct {
	collection *mongo.Collection
}

func NewMongoAdapter(db *mongo.Database) *MongoAdapter {
	return &MongoAdapter{collection: db.Collection(storesCollection)}
}

func (m *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create owner index: %w", err)
	}
	return nil
}

func (m *MongoAdapter) Provision(ctx context.Context, owner domain.Owner) error {
	owner = owner.Normalized()
	_, err := m.collection.UpdateOne(ctx,
		ownerFilter(owner),
		bson.M{"$setOnInsert": bson.M{
			"products":  []domain.Product{},
			"version":   int64(0),
			"updatedAt": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert store: %w", err)
	}
	return nil
}

func (m *MongoAdapter) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Store, error) {
	var doc storeDocument
	err := m.collection.FindOne(ctx, ownerFilter(owner)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find store: %w", err)
	}

	products := doc.Products
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.Store{
		Owner:    domain.Owner{UserID: doc.UserID, Email: doc.Email},
		Products: products,
		Version:  doc.Version,
	}, nil
}

func (m *MongoAdapter) ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error {
	if products == nil {
		products = []domain.Product{}
	}

	filter := ownerFilter(owner)
	filter["version"] = expectedVersion

	result, err := m.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"products": products, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"version": int64(1)},
	})
	if err != nil {
		return fmt.Errorf("update products: %w", err)
	}
	if result.MatchedCount == 0 {
		return port.ErrVersionConflict
	}
	return nil
}

func ownerFilter(owner domain.Owner) bson.M {
	return bson.M{"userId": owner.UserID, "email": domain.NormalizeEmail(owner.Email)}
}
