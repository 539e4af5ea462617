package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/pbkdf2"

	"github.com/winiceo/kevio/internal/core/domain"
	"github.com/winiceo/kevio/internal/core/ports"
)

const pbkdf2Iterations = 210_000
const pbkdf2KeyLen = 64

// SyncDispatcher hands post-mutation access sync work to an asynchronous
// executor. Enqueueing never blocks on or reports ACL outcomes: the entity
// write has already committed by the time these are called.
type SyncDispatcher interface {
	UserCreated(user *domain.User)
	UserUpdated(before, after *domain.User, loginOnly bool)
	UserDeleted(user *domain.User)
}

// UserService implements account CRUD. Every successful mutation dispatches
// an access sync task after the repository write commits.
type UserService struct {
	repo  ports.UserRepository
	roles ports.RoleRepository
	sync  SyncDispatcher
	log   zerolog.Logger
}

func NewUserService(repo ports.UserRepository, roles ports.RoleRepository, sync SyncDispatcher, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, roles: roles, sync: sync, log: log}
}

func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	userType := in.Type
	if userType == "" {
		userType = domain.TypeUser
	}

	salt := uuid.NewString()
	now := time.Now().UTC()
	user := &domain.User{
		Email:         email,
		Name:          in.Name,
		Salt:          salt,
		Hash:          hashPassword(in.Password, salt),
		Enabled:       true,
		Type:          userType,
		RoleIDs:       append([]string(nil), in.RoleIDs...),
		Invited:       in.Invited,
		InviterID:     in.InviterID,
		WaitingStatus: domain.WaitingAccepted,
		CreatedAt:     now,
	}
	if in.Invited {
		user.WaitingStatus = domain.WaitingPending
		user.RegisterToken = uuid.NewString()
	}

	appIDs, err := s.appIDsForRoles(ctx, user.RoleIDs)
	if err != nil {
		return nil, err
	}
	user.AppIDs = appIDs

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Str("email", created.Email).Msg("user created")

	s.sync.UserCreated(created.Clone())
	return created, nil
}

func (s *UserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Snapshot before any in-flight change is applied.
	before := user.Clone()

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, domain.ErrInvalidCredentials
		}
		user.Email = email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Enabled != nil {
		user.Enabled = *in.Enabled
	}
	if in.Type != nil {
		user.Type = *in.Type
	}
	if in.WaitingStatus != nil {
		user.WaitingStatus = *in.WaitingStatus
	}
	if in.Password != nil && *in.Password != "" {
		user.Salt = uuid.NewString()
		user.Hash = hashPassword(*in.Password, user.Salt)
		user.PasswordChanged = true
		user.PasswordChangedAt = time.Now().UTC()
	}
	if in.RoleIDs != nil {
		user.RoleIDs = append([]string(nil), (*in.RoleIDs)...)
		appIDs, err := s.appIDsForRoles(ctx, user.RoleIDs)
		if err != nil {
			return nil, err
		}
		user.AppIDs = appIDs
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user updated")

	s.sync.UserUpdated(before, user.Clone(), false)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")

	s.sync.UserDeleted(user)
	return nil
}

// RecordLogin stamps the last-login time. The dispatched sync task is flagged
// loginOnly, which exempts it from ACL work and change-event emission.
func (s *UserService) RecordLogin(ctx context.Context, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	before := user.Clone()
	user.LastLogin = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	s.sync.UserUpdated(before, user.Clone(), true)
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.FindByEmail(ctx, normalizeEmail(email))
}

// appIDsForRoles recomputes the denormalized application-id set from the
// assigned roles.
func (s *UserService) appIDsForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	roles, err := s.roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(roles))
	var appIDs []string
	for _, role := range roles {
		if role.AppID == "" {
			continue
		}
		if _, ok := seen[role.AppID]; ok {
			continue
		}
		seen[role.AppID] = struct{}{}
		appIDs = append(appIDs, role.AppID)
	}
	return appIDs, nil
}

// Emails are stored lowercased so the unique index cannot be defeated by case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(key)
}

// VerifyPassword reports whether the password matches the stored hash+salt
// pair, in constant time.
func VerifyPassword(user *domain.User, password string) bool {
	computed := hashPassword(password, user.Salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(user.Hash)) == 1
}
