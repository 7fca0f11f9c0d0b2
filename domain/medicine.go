package domain

// Medicine is one stocked batch. Prices are in minor currency units (paise).
type Medicine struct {
	ID                int64  `db:"id" json:"id"`
	Name              string `db:"name" json:"name"`
	BatchNumber       string `db:"batch_number" json:"batch_number"`
	ExpiryDate        string `db:"expiry_date" json:"expiry_date"`
	DateOfPurchase    string `db:"date_of_purchase" json:"date_of_purchase,omitempty"`
	QuantityAvailable int64  `db:"quantity_available" json:"quantity_available"`
	UnitPrice         int64  `db:"unit_price" json:"unit_price"`
	Manufacturer      string `db:"manufacturer" json:"manufacturer,omitempty"`
	Category          string `db:"category" json:"category,omitempty"`
	Description       string `db:"description" json:"description,omitempty"`
	IsActive          bool   `db:"is_active" json:"is_active"`
	CreatedBy         *int64 `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         string `db:"created_at" json:"created_at"`
	UpdatedAt         string `db:"updated_at" json:"updated_at"`
}

// Sellable reports whether the batch can still be sold on the given day (YYYY-MM-DD).
func (m Medicine) Sellable(today string) bool {
	return m.IsActive && m.QuantityAvailable > 0 && m.ExpiryDate > today
}
