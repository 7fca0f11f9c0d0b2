package domain

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID        int64   `json:"id" db:"id"`
	Username  string  `json:"username" db:"username"`
	Password  string  `json:"password,omitempty" db:"password"`
	FullName  string  `json:"full_name" db:"full_name"`
	Email     string  `json:"email" db:"email"`
	Phone     string  `json:"phone,omitempty" db:"phone"`
	Position  string  `json:"position,omitempty" db:"position"`
	HireDate  string  `json:"hire_date,omitempty" db:"hire_date"`
	Role      string  `json:"role" db:"-"`
	IsActive  bool    `json:"is_active" db:"is_active"`
	LastLogin *string `json:"last_login,omitempty" db:"last_login"`
	CreatedAt string  `json:"created_at,omitempty" db:"created_at"`
}
