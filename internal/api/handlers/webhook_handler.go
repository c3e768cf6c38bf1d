package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type WebhookHandler struct {
	webhookService services.WebhookService
}

func NewWebhookHandler(webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

type createWebhookRequest struct {
	TargetURL string   `json:"target_url"`
	Events    []string `json:"events,omitempty"`
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	webhooks, err := h.webhookService.ListWebhooks(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, webhooks)
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(req.TargetURL, "http://") && !strings.HasPrefix(req.TargetURL, "https://") {
		http.Error(w, "Field 'target_url' must be an http(s) URL", http.StatusBadRequest)
		return
	}

	webhook, err := h.webhookService.CreateWebhook(r.Context(), user.ID, req.TargetURL, req.Events)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// The signing secret is returned once, at creation time only.
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"webhook": webhook,
		"secret":  webhook.Secret,
	})
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := services.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	webhookID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid webhook id", http.StatusBadRequest)
		return
	}

	if err := h.webhookService.DeleteWebhook(r.Context(), webhookID, user.ID); err != nil {
		if errors.Is(err, apierrors.ErrNotFound) {
			http.Error(w, "Webhook not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
