package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contacts-api/internal/auth"
	"contacts-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

// Store is the persistence used by Handler. Every method is scoped to userID.
type Store interface {
	List(ctx context.Context, userID int64, page Page) ([]Contact, error)
	Get(ctx context.Context, userID, id int64) (Contact, error)
	Create(ctx context.Context, userID int64, in Input) (Contact, error)
	Update(ctx context.Context, userID, id int64, in Input) (Contact, error)
	Delete(ctx context.Context, userID, id int64) error
	Search(ctx context.Context, userID int64, filter SearchFilter) ([]Contact, error)
	UpcomingBirthdays(ctx context.Context, userID int64, from time.Time, days int) ([]Contact, error)
}

// Handler serves the contact routes. It must run behind auth.Middleware.
type Handler struct {
	store  Store
	logger *observability.Logger
	now    func() time.Time
}

func NewHandler(store Store, logger *observability.Logger) *Handler {
	return &Handler{store: store, logger: logger, now: time.Now}
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	contacts, err := h.store.List(r.Context(), user.ID, page)
	if err != nil {
		h.internalError(w, r, "list_contacts_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	c, err := h.store.Get(r.Context(), user.ID, id)
	if err != nil {
		h.storeError(w, r, "get_contact_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	c, err := h.store.Create(r.Context(), user.ID, input)
	if err != nil {
		h.internalError(w, r, "create_contact_failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	c, err := h.store.Update(r.Context(), user.ID, id, input)
	if err != nil {
		h.storeError(w, r, "update_contact_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), user.ID, id); err != nil {
		h.storeError(w, r, "delete_contact_failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SearchContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := SearchFilter{
		FirstName: strings.TrimSpace(query.Get("first_name")),
		LastName:  strings.TrimSpace(query.Get("last_name")),
		Email:     strings.TrimSpace(query.Get("email")),
	}

	contacts, err := h.store.Search(r.Context(), user.ID, filter)
	if err != nil {
		h.internalError(w, r, "search_contacts_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

func (h *Handler) UpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	contacts, err := h.store.UpcomingBirthdays(r.Context(), user.ID, h.now(), UpcomingDays)
	if err != nil {
		h.internalError(w, r, "upcoming_birthdays_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Contact not found")
		return
	}
	h.internalError(w, r, message, err)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	observability.ReportError(h.logger, r, message, err)
	writeError(w, http.StatusInternalServerError, auth.MsgInternal)
}

func currentUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, auth.MsgInvalidCredentials)
		return auth.User{}, false
	}
	return user, true
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("contact_id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "contact_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parsePage(r *http.Request) (Page, error) {
	page := Page{Limit: DefaultLimit}
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			return Page{}, errors.New("limit must be between 1 and " + strconv.Itoa(MaxLimit))
		}
		page.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Page{}, errors.New("offset must be a non-negative integer")
		}
		page.Offset = offset
	}

	return page, nil
}

func parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input Input
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return Input{}, false
	}

	input.normalize()
	if err := input.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return Input{}, false
	}

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
