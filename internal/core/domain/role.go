package domain

import "errors"

// SuperadminSlug marks the global superadmin role. Superadmin roles are
// granted out of band and never travel through app-scoped capability
// resolution.
const SuperadminSlug = "superadmin"

var ErrLookup = errors.New("directory lookup failed")

// Role is an app-scoped authorization role assigned to users by id.
type Role struct {
	ID    string `json:"id" bson:"_id,omitempty"`
	Slug  string `json:"slug" bson:"slug"`
	Name  string `json:"name" bson:"name"`
	AppID string `json:"app_id" bson:"app_id"`
}

// Superadmin reports whether the role is the global superadmin role.
func (r Role) Superadmin() bool {
	return r.Slug == SuperadminSlug
}

// App is an application that owns a set of roles.
type App struct {
	ID   string `json:"id" bson:"_id,omitempty"`
	Slug string `json:"slug" bson:"slug"`
	Name string `json:"name" bson:"name"`
}

// Capability builds the human-readable name pushed to the ACL store in place
// of an opaque role id. It is derived at resolution time and never persisted.
func Capability(appSlug, roleSlug string) string {
	return appSlug + "_" + roleSlug
}
