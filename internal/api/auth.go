package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medicos/m/domain"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

const tokenTTL = 12 * time.Hour

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	now := time.Now()
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.Secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok || claims.UserID <= 0 {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, _ := r.Context().Value(ctxRole).(string)
			for _, role := range allowed {
				if current == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
		})
	}
}

func currentUser(r *http.Request) (int64, string) {
	id, _ := r.Context().Value(ctxUserID).(int64)
	role, _ := r.Context().Value(ctxRole).(string)
	return id, role
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"user_type,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, fmt.Errorf("username and password are required: %w", domain.ErrValidation))
		return
	}
	if req.UserType != "" && req.UserType != domain.RoleAdmin && req.UserType != domain.RoleStaff {
		writeError(w, r, fmt.Errorf("user_type must be admin or staff: %w", domain.ErrValidation))
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Username, req.Password, req.UserType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		writeError(w, r, fmt.Errorf("sign token: %w", err))
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: *user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, role := currentUser(r)
	user, err := h.Users.Get(r.Context(), role, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type staffRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
	HireDate string `json:"hire_date"`
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.HireDate != "" {
		if _, err := time.Parse("2006-01-02", req.HireDate); err != nil {
			writeError(w, r, fmt.Errorf("hire_date must be YYYY-MM-DD: %w", domain.ErrValidation))
			return
		}
	}
	user := &domain.User{
		Username: strings.TrimSpace(req.Username),
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Phone:    req.Phone,
		Position: req.Position,
		HireDate: req.HireDate,
		Role:     domain.RoleStaff,
	}
	if err := h.Users.Create(r.Context(), user, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type staffUpdateRequest struct {
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Position string  `json:"position"`
	IsActive *bool   `json:"is_active"`
}

// updateStaff applies the fields present in the body to a staff profile.
func (h *Handler) updateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req staffUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Users.Get(r.Context(), domain.RoleStaff, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if v := strings.TrimSpace(req.FullName); v != "" {
		user.FullName = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		user.Email = v
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if v := strings.TrimSpace(req.Position); v != "" {
		user.Position = v
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := h.Users.UpdateStaff(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) deactivateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.DeactivateStaff(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Users.ListStaff(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, staff)
}
