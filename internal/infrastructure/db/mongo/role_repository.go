package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/winiceo/kevio/internal/core/domain"
)

const collectionRoles = "system_roles"

type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

type mongoRole struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Slug  string             `bson:"slug"`
	Name  string             `bson:"name"`
	AppID primitive.ObjectID `bson:"app_id"`
}

// FindByIDs returns the roles matching ids. Unknown or malformed ids are
// absent from the result, never an error.
func (r *RoleRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oids := hexToObjectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.Role
	for cur.Next(ctx) {
		var doc mongoRole
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode role: %w", err)
		}
		out = append(out, domain.Role{
			ID:    doc.ID.Hex(),
			Slug:  doc.Slug,
			Name:  doc.Name,
			AppID: doc.AppID.Hex(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return out, nil
}

// EnsureIndexes creates the indexes role lookups depend on. Slugs are unique
// per owning application.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "app_id", Value: 1}, {Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
