package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/database/databasetest"
	"medicos/m/internal/inventory"
	"medicos/m/internal/users"
)

func TestAccountsAreCreatedOnce(t *testing.T) {
	db := databasetest.New(t)
	us := users.New(db)
	ctx := context.Background()

	require.NoError(t, Accounts(ctx, us, "a-pass", "s-pass", zap.NewNop()))
	require.NoError(t, Accounts(ctx, us, "other", "other", zap.NewNop()))

	n, err := us.Count(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	u, err := us.Authenticate(ctx, "staff1", "s-pass", domain.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, "Pharmacist", u.Position)
	_, err = us.Authenticate(ctx, "admin", "other", "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSampleMedicinesOnlyFillEmptyTable(t *testing.T) {
	db := databasetest.New(t)
	inv := inventory.New(db)
	ctx := context.Background()

	n, err := SampleMedicines(ctx, inv, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(sampleMedicines), n)

	n, err = SampleMedicines(ctx, inv, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := inv.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, len(sampleMedicines))
}

func TestLoadCatalog(t *testing.T) {
	db := databasetest.New(t)
	inv := inventory.New(db)
	ctx := context.Background()
	databasetest.InsertMedicine(t, db, "CSV-2", 1, 100, "2099-01-01")

	csv := `name,batch_number,expiry_date,quantity,unit_price,manufacturer,category
Azithromycin 500mg,CSV-1,2099-05-31,30,4500,MediLab,Antibiotic
Paracetamol 500mg,CSV-2,2099-01-01,10,250,PharmaCorp,Pain Relief
Broken,CSV-3,31/12/2099,10,250,,
Negative,CSV-4,2099-01-01,-1,250,,
`
	res, err := LoadCatalog(ctx, inv, strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, CatalogResult{Inserted: 1, Duplicates: 1, Rejected: 2}, res)

	all, err := inv.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	var azi domain.Medicine
	for _, m := range all {
		if m.BatchNumber == "CSV-1" {
			azi = m
		}
	}
	assert.Equal(t, int64(4500), azi.UnitPrice)
	assert.Equal(t, "Antibiotic", azi.Category)
}

func TestLoadCatalogRejectsUnknownHeader(t *testing.T) {
	db := databasetest.New(t)
	_, err := LoadCatalog(context.Background(), inventory.New(db), strings.NewReader("brand_id,brand_name\n1,x\n"), zap.NewNop())
	require.ErrorIs(t, err, domain.ErrValidation)
}
