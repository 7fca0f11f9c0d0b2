package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicos/m/domain"
	"medicos/m/internal/database/databasetest"
)

func TestCreateAndAuthenticate(t *testing.T) {
	s := New(databasetest.New(t))
	ctx := context.Background()

	admin := &domain.User{Username: "admin", FullName: "System Administrator", Email: "Admin@MEDicos.com", Role: domain.RoleAdmin}
	require.NoError(t, s.Create(ctx, admin, "admin123"))
	assert.Equal(t, "admin@medicos.com", admin.Email)

	staff := &domain.User{Username: "staff1", FullName: "John Smith", Email: "john@medicos.com", Role: domain.RoleStaff}
	require.NoError(t, s.Create(ctx, staff, "staff123"))
	assert.Equal(t, "Pharmacist", staff.Position)

	u, err := s.Authenticate(ctx, "staff1", "staff123", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, u.Role)
	assert.Empty(t, u.Password)
	require.NotNil(t, u.LastLogin)

	u, err = s.Authenticate(ctx, "admin", "admin123", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)

	_, err = s.Authenticate(ctx, "admin", "admin123", domain.RoleStaff)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "staff1", "wrong", "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody", "x", "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	got, err := s.Get(ctx, domain.RoleStaff, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", got.FullName)
	assert.NotNil(t, got.LastLogin)
}

func TestCreateRejectsDuplicatesAndBadInput(t *testing.T) {
	s := New(databasetest.New(t))
	ctx := context.Background()

	u := &domain.User{Username: "staff1", FullName: "A", Email: "a@medicos.com", Role: domain.RoleStaff}
	require.NoError(t, s.Create(ctx, u, "pw"))

	dup := &domain.User{Username: "staff1", FullName: "B", Email: "b@medicos.com", Role: domain.RoleStaff}
	require.ErrorIs(t, s.Create(ctx, dup, "pw"), domain.ErrDuplicateUser)

	require.ErrorIs(t, s.Create(ctx, &domain.User{Username: "x", Role: domain.RoleStaff}, "pw"), domain.ErrValidation)
	require.ErrorIs(t, s.Create(ctx, &domain.User{Username: "x", FullName: "X", Email: "x@y", Role: "owner"}, "pw"), domain.ErrValidation)

	staff, err := s.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, staff, 1)
	n, err := s.Count(ctx, domain.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateAndDeactivateStaff(t *testing.T) {
	db := databasetest.New(t)
	s := New(db)
	ctx := context.Background()

	u := &domain.User{Username: "staff1", FullName: "John Smith", Email: "john@medicos.com", Role: domain.RoleStaff}
	require.NoError(t, s.Create(ctx, u, "staff123"))
	other := &domain.User{Username: "staff2", FullName: "Sarah", Email: "sarah@medicos.com", Role: domain.RoleStaff}
	require.NoError(t, s.Create(ctx, other, "pw"))

	u.FullName = "John A. Smith"
	u.Email = "John.Smith@MEDicos.com"
	u.Position = "Senior Pharmacist"
	require.NoError(t, s.UpdateStaff(ctx, u))
	got, err := s.Get(ctx, domain.RoleStaff, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "John A. Smith", got.FullName)
	assert.Equal(t, "john.smith@medicos.com", got.Email)
	assert.Equal(t, "Senior Pharmacist", got.Position)
	assert.True(t, got.IsActive)

	clash := *got
	clash.Email = "sarah@medicos.com"
	require.ErrorIs(t, s.UpdateStaff(ctx, &clash), domain.ErrDuplicateUser)
	missing := *got
	missing.ID = 999
	require.ErrorIs(t, s.UpdateStaff(ctx, &missing), domain.ErrNotFound)

	require.NoError(t, s.DeactivateStaff(ctx, u.ID))
	require.ErrorIs(t, s.DeactivateStaff(ctx, u.ID), domain.ErrNotFound)
	_, err = s.Authenticate(ctx, "staff1", "staff123", "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// reactivation goes through UpdateStaff
	got.IsActive = true
	require.NoError(t, s.UpdateStaff(ctx, got))
	_, err = s.Authenticate(ctx, "staff1", "staff123", domain.RoleStaff)
	require.NoError(t, err)
}
