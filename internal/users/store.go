// Package users stores admin and staff accounts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"medicos/m/domain"
	"medicos/m/internal/database"
)

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func table(role string) (string, string, error) {
	switch role {
	case domain.RoleAdmin:
		return "admins", `id, username, password, full_name, email, phone, is_active, last_login, created_at`, nil
	case domain.RoleStaff:
		return "staff", `id, username, password, full_name, email, phone, position, hire_date, is_active, last_login, created_at`, nil
	}
	return "", "", fmt.Errorf("role %q: %w", role, domain.ErrValidation)
}

// Authenticate checks a password against the account table for role. An
// empty role tries admins first, then staff.
func (s *Store) Authenticate(ctx context.Context, username, password, role string) (*domain.User, error) {
	roles := []string{role}
	if role == "" {
		roles = []string{domain.RoleAdmin, domain.RoleStaff}
	}
	for _, r := range roles {
		u, err := s.byUsername(ctx, r, username)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !u.IsActive || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			return nil, domain.ErrInvalidCredentials
		}
		if err := s.touchLogin(ctx, u); err != nil {
			return nil, err
		}
		u.Password = ""
		return u, nil
	}
	return nil, domain.ErrInvalidCredentials
}

func (s *Store) byUsername(ctx context.Context, role, username string) (*domain.User, error) {
	tbl, cols, err := table(role)
	if err != nil {
		return nil, err
	}
	var u domain.User
	err = s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+cols+` FROM `+tbl+` WHERE username = ?`), strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", role, username, err)
	}
	u.Role = role
	return &u, nil
}

func (s *Store) touchLogin(ctx context.Context, u *domain.User) error {
	tbl, _, _ := table(u.Role)
	ts := s.now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE `+tbl+` SET last_login = ? WHERE id = ?`), ts, u.ID); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	u.LastLogin = &ts
	return nil
}

// Get loads an account without its password hash.
func (s *Store) Get(ctx context.Context, role string, id int64) (*domain.User, error) {
	tbl, cols, err := table(role)
	if err != nil {
		return nil, err
	}
	var u domain.User
	err = s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+cols+` FROM `+tbl+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", role, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", role, id, err)
	}
	u.Role = role
	u.Password = ""
	return &u, nil
}

// Create hashes password and inserts the account for u.Role.
func (s *Store) Create(ctx context.Context, u *domain.User, password string) error {
	if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" || password == "" || u.FullName == "" {
		return fmt.Errorf("username, email, full_name and password are required: %w", domain.ErrValidation)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ts := s.now().UTC().Format(time.RFC3339)
	email := strings.ToLower(strings.TrimSpace(u.Email))

	switch u.Role {
	case domain.RoleAdmin:
		err = s.db.QueryRowxContext(ctx, s.db.Rebind(`INSERT INTO admins (username, password, full_name, email, phone, created_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`), u.Username, string(hashed), u.FullName, email, u.Phone, ts).Scan(&u.ID)
	case domain.RoleStaff:
		if u.Position == "" {
			u.Position = "Pharmacist"
		}
		if u.HireDate == "" {
			u.HireDate = s.now().UTC().Format("2006-01-02")
		}
		err = s.db.QueryRowxContext(ctx, s.db.Rebind(`INSERT INTO staff (username, password, full_name, email, phone, position, hire_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`), u.Username, string(hashed), u.FullName, email, u.Phone, u.Position, u.HireDate, ts).Scan(&u.ID)
	default:
		return fmt.Errorf("role %q: %w", u.Role, domain.ErrValidation)
	}
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", u.Username, domain.ErrDuplicateUser)
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", u.Role, err)
	}
	u.Email = email
	u.IsActive = true
	u.CreatedAt = ts
	u.Password = ""
	return nil
}

// UpdateStaff overwrites the editable profile fields of a staff account,
// including is_active. Username and password are not changed here.
func (s *Store) UpdateStaff(ctx context.Context, u *domain.User) error {
	if strings.TrimSpace(u.FullName) == "" || strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("full_name and email are required: %w", domain.ErrValidation)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE staff
		SET full_name = ?, email = ?, phone = ?, position = ?, is_active = ?
		WHERE id = ?`), u.FullName, u.Email, u.Phone, u.Position, u.IsActive, u.ID)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", u.Email, domain.ErrDuplicateUser)
	}
	if err != nil {
		return fmt.Errorf("update staff %d: %w", u.ID, err)
	}
	return requireRow(res, u.ID)
}

// DeactivateStaff soft-deletes a staff account. Their sales keep
// referencing the row.
func (s *Store) DeactivateStaff(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE staff SET is_active = FALSE
		WHERE id = ? AND is_active = TRUE`), id)
	if err != nil {
		return fmt.Errorf("deactivate staff %d: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("staff %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListStaff returns every staff account, newest first.
func (s *Store) ListStaff(ctx context.Context) ([]domain.User, error) {
	_, cols, _ := table(domain.RoleStaff)
	out := []domain.User{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+cols+` FROM staff ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	for i := range out {
		out[i].Role = domain.RoleStaff
		out[i].Password = ""
	}
	return out, nil
}

// Count returns how many accounts exist for role.
func (s *Store) Count(ctx context.Context, role string) (int64, error) {
	tbl, _, err := table(role)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+tbl); err != nil {
		return 0, fmt.Errorf("count %s: %w", tbl, err)
	}
	return n, nil
}
