package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/adapter/sqlite"
	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// newTestRepo creates an in-memory SQLite repository for testing.
func newTestRepo(t *testing.T) *sqlite.SessionRepository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *sqlite.SessionRepository, s domain.Session) {
	t.Helper()
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("mustCreate failed: %v", err)
	}
}

func TestCreate_And_GetByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := domain.NewSession("s-1")
	s.SetField(domain.FieldName, "Jane Doe")
	s.SetField(domain.FieldEmail, "jane@x.com")
	s.Errors[domain.FieldPhone] = domain.MsgPhoneRequired
	s.Form.TermsAccepted = true

	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.State != domain.StateContact {
		t.Errorf("State = %q, want %q", got.State, domain.StateContact)
	}
	if got.Form.Get(domain.FieldName) != "Jane Doe" {
		t.Errorf("name = %q, want %q", got.Form.Get(domain.FieldName), "Jane Doe")
	}
	if got.Form.Get(domain.FieldEmail) != "jane@x.com" {
		t.Errorf("email = %q, want %q", got.Form.Get(domain.FieldEmail), "jane@x.com")
	}
	if got.Errors[domain.FieldPhone] != domain.MsgPhoneRequired {
		t.Errorf("Errors[phone] = %q, want %q", got.Errors[domain.FieldPhone], domain.MsgPhoneRequired)
	}
	if !got.Form.TermsAccepted {
		t.Error("TermsAccepted should round-trip")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetByID_EmptyMaps(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := domain.NewSession("s-1")
	s.Errors = nil
	mustCreate(t, repo, s)

	got, err := repo.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Errors == nil || got.Form.Values == nil {
		t.Error("maps should be non-nil after load")
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := domain.NewSession("s-1")
	mustCreate(t, repo, s)

	s.State = domain.StateBusiness
	s.SetField(domain.FieldCompanyName, "Doe Haulage")
	s.Result = domain.Failure("Email already registered")

	if err := repo.Update(ctx, s); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, "s-1")
	if got.State != domain.StateBusiness {
		t.Errorf("State = %q, want %q", got.State, domain.StateBusiness)
	}
	if got.Form.Get(domain.FieldCompanyName) != "Doe Haulage" {
		t.Errorf("company_name = %q", got.Form.Get(domain.FieldCompanyName))
	}
	if got.Result != domain.Failure("Email already registered") {
		t.Errorf("Result = %+v", got.Result)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Error("UpdatedAt should not be before CreatedAt")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Update(context.Background(), domain.NewSession("nonexistent"))
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, domain.NewSession("s-1"))

	if err := repo.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second delete: expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteStale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := domain.NewSession("old")
	old.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	old.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	mustCreate(t, repo, old)
	mustCreate(t, repo, domain.NewSession("fresh"))

	n, err := repo.DeleteStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteStale failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
	if _, err := repo.GetByID(ctx, "fresh"); err != nil {
		t.Errorf("fresh session should survive: %v", err)
	}
	if _, err := repo.GetByID(ctx, "old"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("old session should be gone, got %v", err)
	}
}

func TestList_All(t *testing.T) {
	repo := newTestRepo(t)

	mustCreate(t, repo, domain.NewSession("s-1"))
	mustCreate(t, repo, domain.NewSession("s-2"))

	sessions, err := repo.List(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(sessions))
	}
}

func TestList_FilterByState(t *testing.T) {
	repo := newTestRepo(t)

	mustCreate(t, repo, domain.NewSession("s-1"))

	s2 := domain.NewSession("s-2")
	s2.State = domain.StateSecurity
	mustCreate(t, repo, s2)

	state := domain.StateSecurity
	sessions, err := repo.List(context.Background(), domain.ListFilter{State: &state})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].ID != "s-2" {
		t.Errorf("ID = %q, want %q", sessions[0].ID, "s-2")
	}
}

func TestList_Pagination(t *testing.T) {
	repo := newTestRepo(t)

	for i := range 5 {
		mustCreate(t, repo, domain.NewSession(fmt.Sprintf("s-%d", i)))
	}

	sessions, err := repo.List(context.Background(), domain.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(sessions))
	}

	rest, err := repo.List(context.Background(), domain.ListFilter{Offset: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("got %d sessions with offset only, want 2", len(rest))
	}
}
