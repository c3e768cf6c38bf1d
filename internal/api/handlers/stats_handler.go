package handlers

import (
	"net/http"
	"strconv"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/services"
)

type StatsHandler struct {
	statsService  services.StatsService
	apiKeyService services.APIKeyService
}

func NewStatsHandler(statsService services.StatsService, apiKeyService services.APIKeyService) *StatsHandler {
	return &StatsHandler{
		statsService:  statsService,
		apiKeyService: apiKeyService,
	}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	key, ok := services.APIKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.apiKeyService.Authorize(key, models.ScopeStats); err != nil {
		http.Error(w, "API key is inactive, expired or lacks the stats scope", http.StatusForbidden)
		return
	}

	periodDays := 30
	if raw := r.URL.Query().Get("period_days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			periodDays = n
		}
	}

	stats, err := h.statsService.GetUserStats(r.Context(), key.UserID, periodDays)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
