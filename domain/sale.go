package domain

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodRazorpay PaymentMethod = "razorpay"
)

// Sale is an append-only ledger row. UnitPrice is the price snapshot taken
// at the moment stock was decremented.
type Sale struct {
	ID            int64         `db:"id" json:"id"`
	MedicineID    int64         `db:"medicine_id" json:"medicine_id"`
	MedicineName  string        `db:"medicine_name" json:"medicine_name,omitempty"`
	BatchNumber   string        `db:"batch_number" json:"batch_number,omitempty"`
	QuantitySold  int64         `db:"quantity_sold" json:"quantity_sold"`
	UnitPrice     int64         `db:"unit_price" json:"unit_price"`
	TotalAmount   int64         `db:"total_amount" json:"total_amount"`
	Currency      string        `db:"currency" json:"currency"`
	CustomerName  string        `db:"customer_name" json:"customer_name,omitempty"`
	CustomerPhone string        `db:"customer_phone" json:"customer_phone,omitempty"`
	DoctorName    string        `db:"doctor_name" json:"doctor_name,omitempty"`
	SoldBy        int64         `db:"sold_by" json:"sold_by"`
	PaymentID     *string       `db:"payment_id" json:"payment_id,omitempty"`
	OrderID       *string       `db:"order_id" json:"order_id,omitempty"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	CreatedAt     string        `db:"created_at" json:"created_at"`
}

// PaymentException records money that moved at the gateway without a
// matching sale. Operators resolve these by hand.
type PaymentException struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	PaymentID string `db:"payment_id" json:"payment_id"`
	Reason    string `db:"reason" json:"reason"`
	Amount    int64  `db:"amount" json:"amount"`
	Currency  string `db:"currency" json:"currency"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
