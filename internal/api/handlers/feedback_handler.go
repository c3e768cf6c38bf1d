package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/services"
)

type FeedbackHandler struct {
	accountant services.AccountantService
}

func NewFeedbackHandler(accountant services.AccountantService) *FeedbackHandler {
	return &FeedbackHandler{accountant: accountant}
}

type feedbackRequest struct {
	Text              string `json:"text"`
	PredictedCategory string `json:"predicted_category"`
	CorrectCategory   string `json:"correct_category"`
}

type feedbackResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	FeedbackID string `json:"feedback_id"`
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key, ok := services.APIKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CorrectCategory == "" {
		http.Error(w, "Field 'correct_category' is required", http.StatusBadRequest)
		return
	}

	feedback, err := h.accountant.SubmitFeedback(r.Context(), key, &services.FeedbackInput{
		Text:              req.Text,
		PredictedCategory: req.PredictedCategory,
		CorrectCategory:   req.CorrectCategory,
		Endpoint:          r.URL.Path,
		Method:            r.Method,
		IPAddress:         clientIP(r),
		UserAgent:         r.UserAgent(),
	})

	switch {
	case err == nil:
		respondWithJSON(w, http.StatusCreated, feedbackResponse{
			Success:    true,
			Message:    "Thank you! Your feedback will help improve our model.",
			FeedbackID: feedback.ID.String(),
		})
	case errors.Is(err, apierrors.ErrKeyForbidden):
		http.Error(w, "API key is inactive, expired or lacks the feedback scope", http.StatusForbidden)
	case errors.Is(err, apierrors.ErrQuotaExceeded):
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
