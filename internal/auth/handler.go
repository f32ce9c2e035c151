package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"contacts-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	credentials  *CredentialService
	verification *VerificationFlow
	logger       *observability.Logger
}

func NewHandler(credentials *CredentialService, verification *VerificationFlow, logger *observability.Logger) *Handler {
	return &Handler{
		credentials:  credentials,
		verification: verification,
		logger:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type requestEmailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterInput
	if !decodeJSON(w, r, &body) {
		return
	}

	registration, err := h.credentials.Register(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, registration)
}

// Login accepts a JSON body or an OAuth2 password form, where the email
// travels in the username field.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if isFormRequest(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		body.Email = r.PostForm.Get("username")
		body.Password = r.PostForm.Get("password")
	} else if !decodeJSON(w, r, &body) {
		return
	}

	tokens, err := h.credentials.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeServiceError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	tokens, err := h.credentials.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		h.writeServiceError(w, r, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var body requestEmailRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.Email = strings.TrimSpace(body.Email)
	err := validation.ValidateStruct(&body,
		validation.Field(&body.Email, validation.Required, is.Email),
	)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	message, err := h.verification.RequestReverification(r.Context(), body.Email)
	if err != nil {
		h.writeServiceError(w, r, "request_email", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	result, err := h.verification.Confirm(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeServiceError(w, r, "confirm_email", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me must run behind Middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, MsgInvalidCredentials)
		return
	}

	writeJSON(w, http.StatusOK, user.Summary())
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	kind := KindOf(err)
	switch kind {
	case KindInternal:
		observability.ReportError(h.logger, r, operation+"_failed", err)
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	case KindUnauthorized, KindBadRequest:
		h.logger.Warn(operation+"_rejected", map[string]any{
			"request_id": observability.RequestIDFromContext(r.Context()),
			"kind":       kind.String(),
			"reason":     err.Error(),
		})
	}

	if kind == KindUnauthorized {
		writeUnauthorized(w, PublicMessage(err))
		return
	}
	writeError(w, kind.HTTPStatus(), PublicMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func isFormRequest(r *http.Request) bool {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
