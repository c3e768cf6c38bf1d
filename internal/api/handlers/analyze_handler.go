package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	apierrors "github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/services"
)

type AnalyzeHandler struct {
	accountant   services.AccountantService
	quotaService services.QuotaService
}

func NewAnalyzeHandler(accountant services.AccountantService, quotaService services.QuotaService) *AnalyzeHandler {
	return &AnalyzeHandler{
		accountant:   accountant,
		quotaService: quotaService,
	}
}

type analyzeRequest struct {
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

type quotaExceededResponse struct {
	Error   string `json:"error"`
	Limit   int64  `json:"limit"`
	Current int64  `json:"current"`
	ResetAt string `json:"reset_at"`
}

func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	key, ok := services.APIKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "Field 'text' is required", http.StatusBadRequest)
		return
	}

	result, err := h.accountant.Analyze(r.Context(), key, &services.AnalyzeInput{
		Text:      req.Text,
		Context:   req.Context,
		Endpoint:  r.URL.Path,
		Method:    r.Method,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})

	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, result)
	case errors.Is(err, apierrors.ErrKeyForbidden):
		http.Error(w, "API key is inactive, expired or lacks the analyze scope", http.StatusForbidden)
	case errors.Is(err, apierrors.ErrQuotaExceeded):
		h.respondQuotaExceeded(w, r, key)
	case errors.Is(err, apierrors.ErrClassification):
		http.Error(w, "Error processing request", http.StatusInternalServerError)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// respondQuotaExceeded fills the standard X-RateLimit headers from the
// tenant's current usage before sending the 429 body.
func (h *AnalyzeHandler) respondQuotaExceeded(w http.ResponseWriter, r *http.Request, key *models.APIKey) {
	resp := quotaExceededResponse{Error: "Rate limit exceeded"}

	if stats, err := h.quotaService.CurrentUsage(r.Context(), key.UserID, key.User.Plan); err == nil {
		resp.Limit = stats.Limit
		resp.Current = stats.CurrentCount
		resp.ResetAt = stats.PeriodEnd.Format(time.RFC3339)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(stats.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(stats.PeriodEnd.Unix(), 10))
	}

	respondWithJSON(w, http.StatusTooManyRequests, resp)
}
