package domain

import (
	"errors"
	"time"
)

// UserType distinguishes ordinary accounts from administrators.
type UserType string

const (
	TypeUser  UserType = "user"
	TypeAdmin UserType = "admin"
)

// WaitingStatus tracks the invite/approval state of an account.
type WaitingStatus string

const (
	WaitingPending  WaitingStatus = "waiting"
	WaitingAccepted WaitingStatus = "accepted"
	WaitingDeclined WaitingStatus = "declined"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserDisabled = errors.New("user is disabled")
var ErrForbidden = errors.New("access forbidden")

// User is the aggregate root for system accounts. Role membership is stored
// by id; AppIDs is denormalized from the assigned roles' owning applications.
type User struct {
	ID                string        `json:"id" bson:"_id,omitempty"`
	Email             string        `json:"email" bson:"email"`
	Name              string        `json:"name,omitempty" bson:"name,omitempty"`
	Salt              string        `json:"-" bson:"salt"`
	Hash              string        `json:"-" bson:"hash"`
	Enabled           bool          `json:"enabled" bson:"enabled"`
	Type              UserType      `json:"type" bson:"type"`
	RoleIDs           []string      `json:"role_ids" bson:"role_ids"`
	AppIDs            []string      `json:"app_ids" bson:"app_ids"`
	Invited           bool          `json:"invited,omitempty" bson:"invited"`
	InviterID         string        `json:"inviter_id,omitempty" bson:"inviter_id,omitempty"`
	WaitingStatus     WaitingStatus `json:"waiting_status" bson:"waiting_status"`
	RegisterToken     string        `json:"-" bson:"register_token,omitempty"`
	ResetToken        string        `json:"-" bson:"reset_token,omitempty"`
	ResetExpires      time.Time     `json:"-" bson:"reset_expires,omitempty"`
	CreatedAt         time.Time     `json:"created_at" bson:"created_at"`
	LastLogin         time.Time     `json:"last_login,omitempty" bson:"last_login,omitempty"`
	PasswordChanged   bool          `json:"-" bson:"password_changed"`
	PasswordChangedAt time.Time     `json:"-" bson:"password_changed_at,omitempty"`
}

// Clone returns a deep copy of the user, suitable for capturing a
// pre-mutation snapshot before fields are edited in place.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.RoleIDs = append([]string(nil), u.RoleIDs...)
	c.AppIDs = append([]string(nil), u.AppIDs...)
	return &c
}
