package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/winiceo/kevio/internal/core/domain"
)

const collectionUsers = "system_users"

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Email             string             `bson:"email"`
	Name              string             `bson:"name,omitempty"`
	Salt              string             `bson:"salt"`
	Hash              string             `bson:"hash"`
	Enabled           bool               `bson:"enabled"`
	Type              string             `bson:"type"`
	RoleIDs           []string           `bson:"role_ids"`
	AppIDs            []string           `bson:"app_ids"`
	Invited           bool               `bson:"invited"`
	InviterID         string             `bson:"inviter_id,omitempty"`
	WaitingStatus     string             `bson:"waiting_status"`
	RegisterToken     string             `bson:"register_token,omitempty"`
	ResetToken        string             `bson:"reset_token,omitempty"`
	ResetExpires      time.Time          `bson:"reset_expires,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
	LastLogin         time.Time          `bson:"last_login,omitempty"`
	PasswordChanged   bool               `bson:"password_changed"`
	PasswordChangedAt time.Time          `bson:"password_changed_at,omitempty"`
}

func toMongoUser(u *domain.User) (mongoUser, error) {
	doc := mongoUser{
		Email:             u.Email,
		Name:              u.Name,
		Salt:              u.Salt,
		Hash:              u.Hash,
		Enabled:           u.Enabled,
		Type:              string(u.Type),
		RoleIDs:           u.RoleIDs,
		AppIDs:            u.AppIDs,
		Invited:           u.Invited,
		InviterID:         u.InviterID,
		WaitingStatus:     string(u.WaitingStatus),
		RegisterToken:     u.RegisterToken,
		ResetToken:        u.ResetToken,
		ResetExpires:      u.ResetExpires,
		CreatedAt:         u.CreatedAt,
		LastLogin:         u.LastLogin,
		PasswordChanged:   u.PasswordChanged,
		PasswordChangedAt: u.PasswordChangedAt,
	}
	if u.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return mongoUser{}, fmt.Errorf("invalid user id %q: %w", u.ID, err)
		}
		doc.ID = oid
	}
	return doc, nil
}

func (m mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                m.ID.Hex(),
		Email:             m.Email,
		Name:              m.Name,
		Salt:              m.Salt,
		Hash:              m.Hash,
		Enabled:           m.Enabled,
		Type:              domain.UserType(m.Type),
		RoleIDs:           m.RoleIDs,
		AppIDs:            m.AppIDs,
		Invited:           m.Invited,
		InviterID:         m.InviterID,
		WaitingStatus:     domain.WaitingStatus(m.WaitingStatus),
		RegisterToken:     m.RegisterToken,
		ResetToken:        m.ResetToken,
		ResetExpires:      m.ResetExpires,
		CreatedAt:         m.CreatedAt,
		LastLogin:         m.LastLogin,
		PasswordChanged:   m.PasswordChanged,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toMongoUser(user)
	if err != nil {
		return nil, err
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := user.Clone()
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return created, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toMongoUser(user)
	if err != nil {
		return err
	}

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var doc mongoUser
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the indexes the user collection relies on, most
// importantly the unique email index that backs the global uniqueness
// invariant.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role_ids", Value: 1}}},
		{Keys: bson.D{{Key: "app_ids", Value: 1}}},
		{Keys: bson.D{{Key: "last_login", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
