package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/winiceo/kevio/internal/core/domain"
	"github.com/winiceo/kevio/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	createErr error
	updateErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	clone := u.Clone()
	clone.ID = fmt.Sprintf("u%d", r.nextID)
	r.byID[clone.ID] = clone
	return clone.Clone(), nil
}

func (r *stubUserRepo) Update(_ context.Context, u *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.byID[u.ID] = u.Clone()
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ---------------------------------------------------------------------------
// Recording sync dispatcher stub
// ---------------------------------------------------------------------------

type dispatchedTask struct {
	kind      string
	before    *domain.User
	after     *domain.User
	loginOnly bool
}

type recordingDispatcher struct {
	tasks []dispatchedTask
}

func (d *recordingDispatcher) UserCreated(u *domain.User) {
	d.tasks = append(d.tasks, dispatchedTask{kind: "created", after: u})
}

func (d *recordingDispatcher) UserUpdated(before, after *domain.User, loginOnly bool) {
	d.tasks = append(d.tasks, dispatchedTask{kind: "updated", before: before, after: after, loginOnly: loginOnly})
}

func (d *recordingDispatcher) UserDeleted(u *domain.User) {
	d.tasks = append(d.tasks, dispatchedTask{kind: "deleted", before: u})
}

func newUserFixture() (*UserService, *stubUserRepo, *recordingDispatcher) {
	repo := newStubUserRepo()
	roles := newStubRoleRepo(
		domain.Role{ID: "roleA", Slug: "author", AppID: "appY"},
		domain.Role{ID: "roleB", Slug: "moderator", AppID: "appZ"},
	)
	dispatcher := &recordingDispatcher{}
	return NewUserService(repo, roles, dispatcher, nopLogger), repo, dispatcher
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserService_Create_NormalizesEmail(t *testing.T) {
	svc, repo, _ := newUserFixture()

	user, err := svc.Create(context.Background(), ports.CreateUserInput{
		Email:    "  Alice@Example.COM ",
		Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}
	if stored := repo.byID[user.ID]; stored.Email != "alice@example.com" {
		t.Errorf("persisted email not normalized: %q", stored.Email)
	}
}

func TestUserService_Create_HashesPassword(t *testing.T) {
	svc, repo, _ := newUserFixture()

	user, err := svc.Create(context.Background(), ports.CreateUserInput{
		Email:    "bob@example.com",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.byID[user.ID]
	if stored.Hash == "" || stored.Salt == "" {
		t.Fatal("expected hash and salt to be set")
	}
	if stored.Hash == "hunter2" {
		t.Fatal("password must not be stored in clear")
	}
	if !VerifyPassword(stored, "hunter2") {
		t.Error("stored credentials must verify against the original password")
	}
	if VerifyPassword(stored, "wrong") {
		t.Error("wrong password must not verify")
	}
}

func TestUserService_Create_DerivesAppIDs(t *testing.T) {
	svc, repo, _ := newUserFixture()

	user, err := svc.Create(context.Background(), ports.CreateUserInput{
		Email:    "carol@example.com",
		Password: "pw",
		RoleIDs:  []string{"roleA", "roleB"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(repo.byID[user.ID].AppIDs, []string{"appY", "appZ"}) {
		t.Errorf("expected app ids derived from roles, got %v", repo.byID[user.ID].AppIDs)
	}
}

func TestUserService_Create_DispatchesSyncAfterWrite(t *testing.T) {
	svc, _, dispatcher := newUserFixture()

	user, err := svc.Create(context.Background(), ports.CreateUserInput{
		Email:    "dave@example.com",
		Password: "pw",
		RoleIDs:  []string{"roleA"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dispatcher.tasks) != 1 {
		t.Fatalf("expected 1 sync task, got %d", len(dispatcher.tasks))
	}
	task := dispatcher.tasks[0]
	if task.kind != "created" || task.after.ID != user.ID {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestUserService_Create_RepoFailureDispatchesNothing(t *testing.T) {
	svc, repo, dispatcher := newUserFixture()
	repo.createErr = errors.New("db unavailable")

	_, err := svc.Create(context.Background(), ports.CreateUserInput{Email: "x@y.z", Password: "pw"})
	if err == nil {
		t.Fatal("expected error when repo fails")
	}
	if len(dispatcher.tasks) != 0 {
		t.Error("sync must only happen after the authoritative write commits")
	}
}

func TestUserService_Create_InvitedUserWaits(t *testing.T) {
	svc, _, _ := newUserFixture()

	user, err := svc.Create(context.Background(), ports.CreateUserInput{
		Email:     "eve@example.com",
		Password:  "pw",
		Invited:   true,
		InviterID: "u0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.WaitingStatus != domain.WaitingPending {
		t.Errorf("invited user must start waiting, got %q", user.WaitingStatus)
	}
	if user.RegisterToken == "" {
		t.Error("invited user must receive a register token")
	}
}

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, ports.CreateUserInput{Email: "dup@example.com", Password: "pw"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, ports.CreateUserInput{Email: "DUP@example.com", Password: "pw"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists for case-variant duplicate, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUserService_Update_PassesBeforeAndAfterSnapshots(t *testing.T) {
	svc, _, dispatcher := newUserFixture()
	ctx := context.Background()

	user, _ := svc.Create(ctx, ports.CreateUserInput{
		Email: "f@example.com", Password: "pw", RoleIDs: []string{"roleA"},
	})
	dispatcher.tasks = nil

	newRoles := []string{"roleB"}
	if _, err := svc.Update(ctx, user.ID, ports.UpdateUserInput{RoleIDs: &newRoles}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dispatcher.tasks) != 1 {
		t.Fatalf("expected 1 sync task, got %d", len(dispatcher.tasks))
	}
	task := dispatcher.tasks[0]
	if task.kind != "updated" || task.loginOnly {
		t.Fatalf("unexpected task: %+v", task)
	}
	if !reflect.DeepEqual(task.before.RoleIDs, []string{"roleA"}) {
		t.Errorf("before snapshot must hold pre-mutation roles, got %v", task.before.RoleIDs)
	}
	if !reflect.DeepEqual(task.after.RoleIDs, []string{"roleB"}) {
		t.Errorf("after snapshot must hold persisted roles, got %v", task.after.RoleIDs)
	}
}

func TestUserService_Update_PasswordRotatesSaltAndHash(t *testing.T) {
	svc, repo, _ := newUserFixture()
	ctx := context.Background()

	user, _ := svc.Create(ctx, ports.CreateUserInput{Email: "g@example.com", Password: "old"})
	oldSalt := repo.byID[user.ID].Salt

	pw := "new"
	if _, err := svc.Update(ctx, user.ID, ports.UpdateUserInput{Password: &pw}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.byID[user.ID]
	if stored.Salt == oldSalt {
		t.Error("password change must rotate the salt")
	}
	if !stored.PasswordChanged || stored.PasswordChangedAt.IsZero() {
		t.Error("password change must be stamped")
	}
	if !VerifyPassword(stored, "new") || VerifyPassword(stored, "old") {
		t.Error("only the new password must verify")
	}
}

func TestUserService_Update_NotFound(t *testing.T) {
	svc, _, dispatcher := newUserFixture()

	_, err := svc.Update(context.Background(), "missing", ports.UpdateUserInput{})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(dispatcher.tasks) != 0 {
		t.Error("failed update must not dispatch sync work")
	}
}

// ---------------------------------------------------------------------------
// RecordLogin
// ---------------------------------------------------------------------------

func TestUserService_RecordLogin_DispatchesLoginOnlyTask(t *testing.T) {
	svc, repo, dispatcher := newUserFixture()
	ctx := context.Background()

	user, _ := svc.Create(ctx, ports.CreateUserInput{
		Email: "h@example.com", Password: "pw", RoleIDs: []string{"roleA"},
	})
	dispatcher.tasks = nil

	if err := svc.RecordLogin(ctx, user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.byID[user.ID].LastLogin.IsZero() {
		t.Error("last login must be stamped")
	}
	if len(dispatcher.tasks) != 1 {
		t.Fatalf("expected 1 sync task, got %d", len(dispatcher.tasks))
	}
	task := dispatcher.tasks[0]
	if !task.loginOnly {
		t.Error("login stamp must dispatch a login-only task")
	}
	if !domain.SameRoleSet(task.before.RoleIDs, task.after.RoleIDs) {
		t.Error("login stamp must not alter role sets")
	}
	if !task.after.LastLogin.After(task.before.LastLogin) {
		t.Error("after snapshot must carry the new login time")
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestUserService_Delete_DispatchesWithFinalRoles(t *testing.T) {
	svc, repo, dispatcher := newUserFixture()
	ctx := context.Background()

	user, _ := svc.Create(ctx, ports.CreateUserInput{
		Email: "i@example.com", Password: "pw", RoleIDs: []string{"roleA", "roleB"},
	})
	dispatcher.tasks = nil

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.byID[user.ID]; ok {
		t.Error("user must be removed from the repository")
	}

	if len(dispatcher.tasks) != 1 {
		t.Fatalf("expected 1 sync task, got %d", len(dispatcher.tasks))
	}
	task := dispatcher.tasks[0]
	if task.kind != "deleted" {
		t.Fatalf("unexpected task kind %q", task.kind)
	}
	if !domain.SameRoleSet(task.before.RoleIDs, []string{"roleA", "roleB"}) {
		t.Errorf("deleted task must carry the final role set, got %v", task.before.RoleIDs)
	}
}

func TestUserService_Delete_NotFound(t *testing.T) {
	svc, _, dispatcher := newUserFixture()

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(dispatcher.tasks) != 0 {
		t.Error("failed delete must not dispatch sync work")
	}
}

func TestUserService_SnapshotsAreIndependentCopies(t *testing.T) {
	svc, repo, dispatcher := newUserFixture()
	ctx := context.Background()

	user, _ := svc.Create(ctx, ports.CreateUserInput{
		Email: "j@example.com", Password: "pw", RoleIDs: []string{"roleA"},
	})
	dispatcher.tasks = nil

	newRoles := []string{"roleB"}
	if _, err := svc.Update(ctx, user.ID, ports.UpdateUserInput{RoleIDs: &newRoles}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the repository copy afterwards must not leak into the task.
	repo.byID[user.ID].RoleIDs[0] = "poisoned"
	task := dispatcher.tasks[0]
	if task.after.RoleIDs[0] != "roleB" {
		t.Error("dispatched snapshots must not alias repository state")
	}
}
