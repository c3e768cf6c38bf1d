package handlers

import (
	"net/http"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/services"
)

type AccountHandler struct {
	accountService services.AccountService
	quotaService   services.QuotaService
}

func NewAccountHandler(accountService services.AccountService, quotaService services.QuotaService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		quotaService:   quotaService,
	}
}

type accountResponse struct {
	ID        string               `json:"id"`
	Email     string               `json:"email"`
	Plan      models.Plan          `json:"plan"`
	IsActive  bool                 `json:"is_active"`
	CreatedAt time.Time            `json:"created_at"`
	Usage     *services.UsageStats `json:"usage"`
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	usage, err := h.quotaService.CurrentUsage(r.Context(), account.ID, account.Plan)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, accountResponse{
		ID:        account.ID.String(),
		Email:     account.Email,
		Plan:      account.Plan,
		IsActive:  account.IsActive,
		CreatedAt: account.CreatedAt,
		Usage:     usage,
	})
}

func (h *AccountHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	usage, err := h.quotaService.CurrentUsage(r.Context(), user.ID, user.Plan)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, usage)
}
