package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/winiceo/kevio/internal/core/domain"
)

const collectionApps = "system_apps"

type AppRepository struct {
	col *mongo.Collection
}

func NewAppRepository(db *mongo.Database) *AppRepository {
	return &AppRepository{col: db.Collection(collectionApps)}
}

type mongoApp struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Slug string             `bson:"slug"`
	Name string             `bson:"name"`
}

// FindByIDs returns the applications matching ids, with the same
// partial-result contract as RoleRepository.FindByIDs.
func (r *AppRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.App, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oids := hexToObjectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find apps: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.App
	for cur.Next(ctx) {
		var doc mongoApp
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode app: %w", err)
		}
		out = append(out, domain.App{
			ID:   doc.ID.Hex(),
			Slug: doc.Slug,
			Name: doc.Name,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate apps: %w", err)
	}
	return out, nil
}
