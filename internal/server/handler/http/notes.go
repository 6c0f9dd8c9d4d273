// Package http provides HTTP handlers for user profiles and notes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/priyanshu-verma600/notekeeper/internal/middleware"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// NoteService defines the note operations required by the HTTP handlers.
type NoteService interface {
	// ProfileAddress returns the address of owner's profile.
	ProfileAddress(owner models.Identity) models.Address
	// NoteAddress returns the address of owner's note noteID.
	NoteAddress(owner models.Identity, noteID uint64) models.Address
	// RegisterUser creates the caller's profile.
	RegisterUser(ctx context.Context, caller models.Identity, username string) error
	// CreateNote creates a note owned by caller and returns its id.
	CreateNote(ctx context.Context, caller models.Identity, title, content string) (uint64, error)
	// UpdateNote replaces the content of the caller's note.
	UpdateNote(ctx context.Context, caller models.Identity, noteID uint64, content string) error
	// DeleteNote closes the caller's note.
	DeleteNote(ctx context.Context, caller models.Identity, noteID uint64) error
	// GetProfile loads owner's profile.
	GetProfile(ctx context.Context, owner models.Identity) (*models.UserProfile, error)
	// GetNote loads owner's note noteID.
	GetNote(ctx context.Context, owner models.Identity, noteID uint64) (*models.Note, error)
	// Balance returns the net lamport balance of id.
	Balance(ctx context.Context, id models.Identity) (int64, error)
}

// NoteHandler handles HTTP requests for profiles and notes.
type NoteHandler struct {
	// NoteService performs the underlying operations.
	NoteService NoteService
}

// RegisterRequest is the JSON payload of POST /api/users.
type RegisterRequest struct {
	Username string `json:"username"`
}

// CreateNoteRequest is the JSON payload of POST /api/notes.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the JSON payload of PUT /api/notes/{id}.
type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// AddressResponse is returned after a profile is registered.
type AddressResponse struct {
	Address models.Address `json:"address"`
}

// CreateNoteResponse is returned after a note is created.
type CreateNoteResponse struct {
	ID      uint64         `json:"id"`
	Address models.Address `json:"address"`
}

// BalanceResponse is returned by GET /api/users/{identity}/balance.
type BalanceResponse struct {
	Lamports int64 `json:"lamports"`
}

// Register handles POST /api/users. The signed caller becomes the profile
// authority.
func (h *NoteHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.NoteService.RegisterUser(r.Context(), caller, req.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddressResponse{Address: h.NoteService.ProfileAddress(caller)})
}

// Profile handles GET /api/users/{identity}.
func (h *NoteHandler) Profile(w http.ResponseWriter, r *http.Request) {
	owner, err := models.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		http.Error(w, "invalid identity", http.StatusBadRequest)
		return
	}

	profile, err := h.NoteService.GetProfile(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Balance handles GET /api/users/{identity}/balance.
func (h *NoteHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		http.Error(w, "invalid identity", http.StatusBadRequest)
		return
	}

	lamports, err := h.NoteService.Balance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Lamports: lamports})
}

// CreateNote handles POST /api/notes.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	id, err := h.NoteService.CreateNote(r.Context(), caller, req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateNoteResponse{
		ID:      id,
		Address: h.NoteService.NoteAddress(caller, id),
	})
}

// Note handles GET /api/users/{identity}/notes/{id}.
func (h *NoteHandler) Note(w http.ResponseWriter, r *http.Request) {
	owner, err := models.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		http.Error(w, "invalid identity", http.StatusBadRequest)
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	note, err := h.NoteService.GetNote(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/{id}.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.NoteService.UpdateNote(r.Context(), caller, id, req.Content); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNote handles DELETE /api/notes/{id}. The deposit is refunded to
// the caller.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	if err := h.NoteService.DeleteNote(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func noteID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid note id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// StatusFor maps a service error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorizedAccess):
		return http.StatusForbidden
	case errors.Is(err, models.ErrProfileNotFound), errors.Is(err, models.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateRegistration), errors.Is(err, models.ErrAllocationCollision):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
