// Package seed loads default accounts, sample stock and an optional CSV
// catalogue into a fresh database.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/inventory"
	"medicos/m/internal/users"
)

// Accounts creates the default admin and staff logins when their tables are
// empty.
func Accounts(ctx context.Context, us *users.Store, adminPassword, staffPassword string, log *zap.Logger) error {
	defaults := []struct {
		user     domain.User
		password string
	}{
		{domain.User{Username: "admin", FullName: "System Administrator", Email: "admin@medicos.com", Role: domain.RoleAdmin}, adminPassword},
		{domain.User{Username: "staff1", FullName: "John Smith", Email: "john@medicos.com", Position: "Pharmacist", Role: domain.RoleStaff}, staffPassword},
	}
	for _, d := range defaults {
		n, err := us.Count(ctx, d.user.Role)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		u := d.user
		if err := us.Create(ctx, &u, d.password); err != nil {
			return fmt.Errorf("seed %s: %w", u.Role, err)
		}
		log.Info("seeded_account", zap.String("role", u.Role), zap.String("username", u.Username))
	}
	return nil
}

var sampleMedicines = []domain.Medicine{
	{Name: "Paracetamol 500mg", BatchNumber: "BATCH001", ExpiryDate: "2027-12-31", QuantityAvailable: 100, UnitPrice: 250, Manufacturer: "PharmaCorp", Category: "Pain Relief"},
	{Name: "Amoxicillin 250mg", BatchNumber: "BATCH002", ExpiryDate: "2027-06-30", QuantityAvailable: 50, UnitPrice: 1200, Manufacturer: "MediLab", Category: "Antibiotic"},
	{Name: "Ibuprofen 400mg", BatchNumber: "BATCH003", ExpiryDate: "2027-10-31", QuantityAvailable: 75, UnitPrice: 375, Manufacturer: "HealthPlus", Category: "Pain Relief"},
	{Name: "Cetirizine 10mg", BatchNumber: "BATCH004", ExpiryDate: "2027-09-30", QuantityAvailable: 40, UnitPrice: 300, Manufacturer: "AllerCare", Category: "Antihistamine"},
	{Name: "Omeprazole 20mg", BatchNumber: "BATCH005", ExpiryDate: "2027-08-31", QuantityAvailable: 60, UnitPrice: 850, Manufacturer: "GastroMed", Category: "Antacid"},
}

// SampleMedicines stocks a few demo batches when the medicines table is
// empty. It returns how many were inserted.
func SampleMedicines(ctx context.Context, inv *inventory.Store, log *zap.Logger) (int, error) {
	existing, err := inv.List(ctx, true)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, m := range sampleMedicines {
		m := m
		if err := inv.Create(ctx, &m); err != nil {
			return 0, fmt.Errorf("seed medicine %s: %w", m.BatchNumber, err)
		}
	}
	log.Info("seeded_medicines", zap.Int("count", len(sampleMedicines)))
	return len(sampleMedicines), nil
}
