package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

// StaffStore defines the database methods needed by staff management.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	CreateStaffUser(ctx context.Context, arg database.CreateStaffUserParams) (database.StaffUser, error)
}

// StaffHandler handles staff account management. Admin only.
type StaffHandler struct {
	store StaffStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore) *StaffHandler {
	return &StaffHandler{store: store}
}

// --- Request types ---

type createStaffRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// --- Handlers ---

// Create handles POST /staff.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Username == "" || req.Password == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username, password, and role are required"})
		return
	}

	if len(req.Username) < 3 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username must be at least 3 characters"})
		return
	}

	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return
	}

	if !isValidStaffRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: create staff: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.CreateStaffUser(r.Context(), database.CreateStaffUserParams{
		Username:     req.Username,
		PasswordHash: string(hashed),
		Role:         req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username already exists"})
			return
		}
		log.Printf("ERROR: create staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, staffResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// --- Helpers ---

func isValidStaffRole(role string) bool {
	return role == enum.StaffRoleAdmin || role == enum.StaffRoleCashier
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
