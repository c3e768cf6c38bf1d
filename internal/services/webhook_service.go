package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/config"
	"github.com/Keyzen2/spamguard-v2/internal/logger"
	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type WebhookService interface {
	// Notify dispatches the event to every active webhook subscribed to it.
	// Dispatch is fire-and-forget relative to the calling request: one
	// attempt per webhook, outcome recorded, nothing surfaced.
	Notify(userID uuid.UUID, event string, payload map[string]interface{})

	CreateWebhook(ctx context.Context, userID uuid.UUID, targetURL string, events []string) (*models.Webhook, error)
	ListWebhooks(ctx context.Context, userID uuid.UUID) ([]models.Webhook, error)
	DeleteWebhook(ctx context.Context, webhookID, userID uuid.UUID) error
}

type webhookService struct {
	webhookRepo repository.WebhookRepository
	client      *http.Client
	timeout     time.Duration
}

func NewWebhookService(webhookRepo repository.WebhookRepository, cfg *config.WebhookConfig) WebhookService {
	return &webhookService{
		webhookRepo: webhookRepo,
		client:      &http.Client{Timeout: cfg.DeliveryTimeout},
		timeout:     cfg.DeliveryTimeout,
	}
}

func (s *webhookService) Notify(userID uuid.UUID, event string, payload map[string]interface{}) {
	go func() {
		// Detached from the request context: delivery timeouts only ever
		// cancel the attempt itself, never the originating request.
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout*2)
		defer cancel()
		s.dispatch(ctx, userID, event, payload)
	}()
}

func (s *webhookService) dispatch(ctx context.Context, userID uuid.UUID, event string, payload map[string]interface{}) {
	webhooks, err := s.webhookRepo.ListActive(ctx, userID)
	if err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"error":   err,
			"user_id": userID,
			"event":   event,
		}).Error("Failed to list webhooks for dispatch")
		return
	}

	for i := range webhooks {
		webhook := &webhooks[i]
		if !webhook.SubscribedTo(event) {
			continue
		}

		success := s.attempt(ctx, webhook, payload)

		if err := s.webhookRepo.RecordResult(ctx, webhook.ID, success); err != nil {
			logger.Logger.WithFields(logrus.Fields{
				"error":      err,
				"webhook_id": webhook.ID,
			}).Error("Failed to record webhook result")
		}

		if !success {
			logger.Logger.WithFields(logrus.Fields{
				"webhook_id": webhook.ID,
				"event":      event,
				"target_url": webhook.TargetURL,
			}).Warn("Webhook delivery failed")
		}
	}
}

func (s *webhookService) attempt(ctx context.Context, webhook *models.Webhook, payload map[string]interface{}) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.TargetURL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Spamguard-Signature", signPayload(webhook.Secret, body))

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (s *webhookService) CreateWebhook(ctx context.Context, userID uuid.UUID, targetURL string, events []string) (*models.Webhook, error) {
	if len(events) == 0 {
		events = []string{models.EventSpamDetected, models.EventPhishingDetected}
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	webhook := &models.Webhook{
		ID:        uuid.New(),
		UserID:    userID,
		TargetURL: targetURL,
		Events:    models.StringArray(events),
		Secret:    hex.EncodeToString(secret),
		IsActive:  true,
	}

	if err := s.webhookRepo.Create(ctx, webhook); err != nil {
		return nil, err
	}

	return webhook, nil
}

func (s *webhookService) ListWebhooks(ctx context.Context, userID uuid.UUID) ([]models.Webhook, error) {
	return s.webhookRepo.ListByUserID(ctx, userID)
}

func (s *webhookService) DeleteWebhook(ctx context.Context, webhookID, userID uuid.UUID) error {
	return s.webhookRepo.Delete(ctx, webhookID, userID)
}
