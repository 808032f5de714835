package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/championsworld/identity"
	"github.com/championsworld/identity/internal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "identity.db")
	s, err := Open("sqlite", dsn, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open("oracle", "dsn", nil); err == nil {
		t.Fatal("expected error for unknown database type")
	}
}

func TestUserCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := identity.UserRecord{
		Email:        "a@x.com",
		PasswordHash: "hash",
		Active:       true,
		Provider:     identity.ProviderLocal,
	}
	if err := s.CreateUser(ctx, &rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("id not assigned")
	}

	got, err := s.UserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if got.ID != rec.ID || got.PasswordHash != "hash" || !got.Active {
		t.Fatalf("got %+v", got)
	}

	if _, err := s.UserByEmail(ctx, "missing@x.com"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("missing lookup: got %v, want ErrUserNotFound", err)
	}

	exists, err := s.EmailExists(ctx, "a@x.com")
	if err != nil || !exists {
		t.Fatalf("EmailExists = %v, %v", exists, err)
	}

	dup := identity.UserRecord{Email: "a@x.com", Provider: identity.ProviderLocal}
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, identity.ErrUserAlreadyExists) {
		t.Fatalf("duplicate email: got %v, want ErrUserAlreadyExists", err)
	}

	if err := s.UpdatePasswordHash(ctx, rec.ID, "hash2"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	if err := s.SetActive(ctx, rec.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	got, _ = s.UserByID(ctx, rec.ID)
	if got.PasswordHash != "hash2" || got.Active {
		t.Fatalf("after updates: %+v", got)
	}

	if err := s.DeleteUser(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteUser(ctx, rec.ID); !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("double delete: got %v, want ErrUserNotFound", err)
	}
}

func TestMobileOnlyUsersDoNotCollide(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// two accounts without email must both insert; the unique index skips
	// NULL identifiers
	a := identity.UserRecord{Mobile: "9000000001", Active: true, Provider: identity.ProviderOTP}
	b := identity.UserRecord{Mobile: "9000000002", Active: true, Provider: identity.ProviderOTP}
	if err := s.CreateUser(ctx, &a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := s.CreateUser(ctx, &b); err != nil {
		t.Fatalf("create b: %v", err)
	}

	got, err := s.UserByMobile(ctx, "9000000002")
	if err != nil || got.ID != b.ID {
		t.Fatalf("by mobile: %+v, %v", got, err)
	}

	dup := identity.UserRecord{Mobile: "9000000001", Provider: identity.ProviderOTP}
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, identity.ErrUserAlreadyExists) {
		t.Fatalf("duplicate mobile: got %v, want ErrUserAlreadyExists", err)
	}
}

func TestRoleAssignment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := identity.UserRecord{Email: "r@x.com", Active: true, Provider: identity.ProviderLocal}
	if err := s.CreateUser(ctx, &rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.RoleOf(ctx, rec.ID); !errors.Is(err, identity.ErrRoleNotFound) {
		t.Fatalf("unassigned: got %v, want ErrRoleNotFound", err)
	}

	if err := s.AssignRole(ctx, rec.ID, identity.RoleCustomer); err != nil {
		t.Fatalf("assign: %v", err)
	}
	role, err := s.RoleOf(ctx, rec.ID)
	if err != nil || role != identity.RoleCustomer {
		t.Fatalf("RoleOf = %q, %v", role, err)
	}

	// reassignment replaces, never duplicates
	if err := s.AssignRole(ctx, rec.ID, identity.RoleAdmin); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	role, _ = s.RoleOf(ctx, rec.ID)
	if role != identity.RoleAdmin {
		t.Fatalf("after reassign RoleOf = %q", role)
	}

	has, err := s.HasRole(ctx, rec.ID, identity.RoleAdmin)
	if err != nil || !has {
		t.Fatalf("HasRole(ADMIN) = %v, %v", has, err)
	}
	has, _ = s.HasRole(ctx, rec.ID, identity.RoleCustomer)
	if has {
		t.Fatal("HasRole(CUSTOMER) after reassign")
	}

	if err := s.AssignRole(ctx, rec.ID, "MYSTERY"); !errors.Is(err, identity.ErrRoleNotFound) {
		t.Fatalf("unknown role: got %v, want ErrRoleNotFound", err)
	}

	if err := s.RemoveRole(ctx, rec.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.RoleOf(ctx, rec.ID); !errors.Is(err, identity.ErrRoleNotFound) {
		t.Fatalf("after remove: got %v, want ErrRoleNotFound", err)
	}
}

func TestListAdmins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	admin := identity.UserRecord{Email: "admin@x.com", Active: true, Provider: identity.ProviderLocal}
	customer := identity.UserRecord{Email: "c@x.com", Active: true, Provider: identity.ProviderLocal}
	for _, rec := range []*identity.UserRecord{&admin, &customer} {
		if err := s.CreateUser(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := s.AssignRole(ctx, admin.ID, identity.RoleAdmin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := s.AssignRole(ctx, customer.ID, identity.RoleCustomer); err != nil {
		t.Fatalf("assign: %v", err)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != admin.ID || admins[0].Role != identity.RoleAdmin {
		t.Fatalf("admins = %+v", admins)
	}
}

func TestResetTokenLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user := identity.UserRecord{Email: "admin@x.com", Active: true, Provider: identity.ProviderLocal}
	if err := s.CreateUser(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := s.LatestResetToken(ctx, user.ID); !errors.Is(err, identity.ErrResetTokenNotFound) {
		t.Fatalf("no token: got %v, want ErrResetTokenNotFound", err)
	}

	first := identity.ResetRecord{
		UserID:    user.ID,
		CodeHash:  internal.HashCode("AAAAAA"),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := s.CreateResetToken(ctx, &first); err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := identity.ResetRecord{
		UserID:    user.ID,
		CodeHash:  internal.HashCode("BBBBBB"),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := s.CreateResetToken(ctx, &second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	latest, err := s.LatestResetToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("latest.ID = %d, want %d", latest.ID, second.ID)
	}
	if !internal.CodeMatches("BBBBBB", latest.CodeHash) {
		t.Fatal("hash did not round-trip")
	}

	if err := s.ConsumeResetToken(ctx, latest.ID); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := s.ConsumeResetToken(ctx, latest.ID); !errors.Is(err, identity.ErrResetTokenInvalid) {
		t.Fatalf("second consume: got %v, want ErrResetTokenInvalid", err)
	}

	latest, _ = s.LatestResetToken(ctx, user.ID)
	if !latest.Used {
		t.Fatal("used flag not persisted")
	}
}

func TestAddressCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user := identity.UserRecord{Email: "c@x.com", Active: true, Provider: identity.ProviderLocal}
	if err := s.CreateUser(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	has, err := s.HasAddresses(ctx, user.ID)
	if err != nil || has {
		t.Fatalf("HasAddresses on empty = %v, %v", has, err)
	}

	home := identity.AddressRecord{
		UserID: user.ID, Label: "Home", City: "Pune", Pincode: "411001",
		Country: "India", Default: true,
	}
	work := identity.AddressRecord{
		UserID: user.ID, Label: "Work", City: "Mumbai", Pincode: "400001",
		Country: "India",
	}
	if err := s.CreateAddress(ctx, &home); err != nil {
		t.Fatalf("create home: %v", err)
	}
	if err := s.CreateAddress(ctx, &work); err != nil {
		t.Fatalf("create work: %v", err)
	}

	all, err := s.AddressesByUser(ctx, user.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("list = %+v, %v", all, err)
	}

	if err := s.ClearDefault(ctx, user.ID); err != nil {
		t.Fatalf("clear default: %v", err)
	}
	got, _ := s.AddressByID(ctx, home.ID)
	if got.Default {
		t.Fatal("default not cleared")
	}

	work.Label = "Office"
	work.Default = true
	if err := s.UpdateAddress(ctx, &work); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.AddressByID(ctx, work.ID)
	if got.Label != "Office" || !got.Default {
		t.Fatalf("after update: %+v", got)
	}

	if err := s.DeleteAddress(ctx, home.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.AddressByID(ctx, home.ID); !errors.Is(err, identity.ErrAddressNotFound) {
		t.Fatalf("deleted lookup: got %v, want ErrAddressNotFound", err)
	}
}
