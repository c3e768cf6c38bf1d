package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/services"
)

type RegisterHandler struct {
	accountService services.AccountService
}

func NewRegisterHandler(accountService services.AccountService) *RegisterHandler {
	return &RegisterHandler{accountService: accountService}
}

type registerRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	SiteURL string `json:"site_url,omitempty"`
}

type registerResponse struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Plan      string   `json:"plan"`
	APIKey    string   `json:"api_key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
	Message   string   `json:"message"`
}

func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !strings.Contains(req.Email, "@") {
		http.Error(w, "A valid email is required", http.StatusBadRequest)
		return
	}

	user, plaintext, apiKey, err := h.accountService.RegisterTenant(r.Context(), req.Email, req.Name, req.SiteURL)
	if err != nil {
		if errors.Is(err, apierrors.ErrAlreadyExists) {
			http.Error(w, "This email already has an active API key", http.StatusConflict)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusCreated, registerResponse{
		UserID:    user.ID.String(),
		Email:     user.Email,
		Plan:      string(user.Plan),
		APIKey:    plaintext,
		KeyPrefix: apiKey.KeyPrefix,
		Scopes:    apiKey.Scopes,
		Message:   "Store this key securely. It will not be shown again.",
	})
}
