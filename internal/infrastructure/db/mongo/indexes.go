package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// emailCollation compares emails case-insensitively. Lookups by email must use
// the same collation as the unique index for the index to serve them.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// emailIndexModel makes email unique within a role collection regardless of
// case, so records written by other systems with mixed-case emails collide
// with their lowercased form.
func emailIndexModel() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("uniq_email_ci").
			SetCollation(emailCollation),
	}
}

// EnsureIndexes creates the indexes the identity stores rely on: email is
// unique within each role collection, and at most one trader may reference a
// given client.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for role, col := range r.cols {
		_, err := col.Indexes().CreateOne(ctx, emailIndexModel())
		if err != nil {
			return fmt.Errorf("ensure email index on %s: %w", roleCollections[role], err)
		}
	}

	_, err := r.cols[domain.RoleTrader].Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "client_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("uniq_client_link").
			SetPartialFilterExpression(bson.M{"client_id": bson.M{"$exists": true}}),
	})
	if err != nil {
		return fmt.Errorf("ensure client link index: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup index used by preferred-category checks.
func (r *CategoryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_active", Value: 1}},
	})
	return err
}
