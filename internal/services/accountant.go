package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/config"
	"github.com/Keyzen2/spamguard-v2/internal/logger"
	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ledgerRetryDelay is the pause before the single retry of a failed usage
// increment. A failed increment blocks accurate billing, so it is retried
// once and then escalated, never dropped.
const ledgerRetryDelay = 100 * time.Millisecond

// EventNotifier dispatches qualifying detection events to tenant webhooks.
type EventNotifier interface {
	Notify(userID uuid.UUID, event string, payload map[string]interface{})
}

type AnalyzeInput struct {
	Text      string
	Context   map[string]string
	Endpoint  string
	Method    string
	IPAddress string
	UserAgent string
}

type AnalyzeResult struct {
	IsSpam           bool               `json:"is_spam"`
	Category         string             `json:"category"`
	Confidence       float64            `json:"confidence"`
	RiskLevel        string             `json:"risk_level,omitempty"`
	Scores           map[string]float64 `json:"scores,omitempty"`
	Flags            []string           `json:"flags,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	RequestID        string             `json:"request_id"`
	Cached           bool               `json:"cached"`
	Usage            *UsageStats        `json:"usage"`
}

type FeedbackInput struct {
	Text              string
	PredictedCategory string
	CorrectCategory   string
	Endpoint          string
	Method            string
	IPAddress         string
	UserAgent         string
}

// AccountantService runs the request gate: authorize scope, admit against
// quota, do the work, then settle usage and audit. An admitted request
// increments the ledger exactly once even when classification fails; a
// rejected request is audited but never incremented.
type AccountantService interface {
	Analyze(ctx context.Context, key *models.APIKey, in *AnalyzeInput) (*AnalyzeResult, error)
	SubmitFeedback(ctx context.Context, key *models.APIKey, in *FeedbackInput) (*models.Feedback, error)

	// RecordRejection audits a request that was turned away before a key
	// could be resolved. Side effect only.
	RecordRejection(ctx context.Context, endpoint, method, ip, userAgent string, statusCode int, message string)
}

type accountantService struct {
	apiKeys    APIKeyService
	quota      QuotaService
	usageRepo  repository.UsageRepository
	logRepo    repository.RequestLogRepository
	feedback   repository.FeedbackRepository
	classifier Classifier
	cache      CacheService // nil when caching is disabled
	notifier   EventNotifier
	catalog    *config.PlanCatalog
	threshold  float64
	cacheTTL   time.Duration
}

func NewAccountantService(
	apiKeys APIKeyService,
	quota QuotaService,
	usageRepo repository.UsageRepository,
	logRepo repository.RequestLogRepository,
	feedback repository.FeedbackRepository,
	classifier Classifier,
	cache CacheService,
	notifier EventNotifier,
	catalog *config.PlanCatalog,
	webhookCfg *config.WebhookConfig,
	cacheTTL time.Duration,
) AccountantService {
	return &accountantService{
		apiKeys:    apiKeys,
		quota:      quota,
		usageRepo:  usageRepo,
		logRepo:    logRepo,
		feedback:   feedback,
		classifier: classifier,
		cache:      cache,
		notifier:   notifier,
		catalog:    catalog,
		threshold:  webhookCfg.ConfidenceThreshold,
		cacheTTL:   cacheTTL,
	}
}

func newRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *accountantService) Analyze(ctx context.Context, key *models.APIKey, in *AnalyzeInput) (*AnalyzeResult, error) {
	start := time.Now()
	requestID := newRequestID()

	audit := &models.APIRequest{
		UserID:     &key.UserID,
		APIKeyID:   &key.ID,
		Endpoint:   in.Endpoint,
		Method:     in.Method,
		TextLength: len(in.Text),
		RequestID:  requestID,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
	}

	if err := s.gate(ctx, key, models.ScopeAnalyze, audit, start); err != nil {
		return nil, err
	}

	// Classification. A cache hit short-circuits the model call; either way
	// the request was admitted and must be settled below.
	prediction, cached, classifyErr := s.classify(ctx, in.Text, in.Context)

	count, ledgerErr := s.settle(ctx, key, models.ScopeAnalyze)

	s.apiKeys.Touch(ctx, key)

	audit.ProcessingTimeMs = time.Since(start).Milliseconds()

	switch {
	case ledgerErr != nil:
		audit.Status = models.StatusError
		audit.StatusCode = 500
		audit.ErrorMessage = ledgerErr.Error()
		s.writeAudit(ctx, audit)
		return nil, ledgerErr
	case classifyErr != nil:
		audit.Status = models.StatusError
		audit.StatusCode = 500
		audit.ErrorMessage = classifyErr.Error()
		s.writeAudit(ctx, audit)
		return nil, errors.ErrClassification
	}

	audit.Status = models.StatusSuccess
	audit.StatusCode = 200
	audit.Category = prediction.Category
	audit.Confidence = prediction.Confidence
	s.writeAudit(ctx, audit)

	s.notifyDetection(key.UserID, prediction, requestID)

	if !cached {
		s.cachePrediction(ctx, in.Text, in.Context, prediction)
	}

	limit := s.catalog.LimitFor(key.User.Plan)
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	year, month, periodEnd := currentPeriod(start)

	return &AnalyzeResult{
		IsSpam:           prediction.Category != CategoryHam,
		Category:         prediction.Category,
		Confidence:       prediction.Confidence,
		RiskLevel:        prediction.RiskLevel,
		Scores:           prediction.Scores,
		Flags:            prediction.Flags,
		ProcessingTimeMs: audit.ProcessingTimeMs,
		RequestID:        requestID,
		Cached:           cached,
		Usage: &UsageStats{
			CurrentCount: count,
			Limit:        limit,
			Remaining:    remaining,
			Year:         year,
			Month:        month,
			PeriodEnd:    periodEnd,
		},
	}, nil
}

func (s *accountantService) SubmitFeedback(ctx context.Context, key *models.APIKey, in *FeedbackInput) (*models.Feedback, error) {
	start := time.Now()

	audit := &models.APIRequest{
		UserID:     &key.UserID,
		APIKeyID:   &key.ID,
		Endpoint:   in.Endpoint,
		Method:     in.Method,
		TextLength: len(in.Text),
		RequestID:  "fb_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
	}

	if err := s.gate(ctx, key, models.ScopeFeedback, audit, start); err != nil {
		return nil, err
	}

	feedback := &models.Feedback{
		UserID:            key.UserID,
		Text:              in.Text,
		PredictedCategory: in.PredictedCategory,
		CorrectCategory:   in.CorrectCategory,
	}
	feedbackErr := s.feedback.Create(ctx, feedback)

	_, ledgerErr := s.settle(ctx, key, models.ScopeFeedback)

	s.apiKeys.Touch(ctx, key)

	audit.ProcessingTimeMs = time.Since(start).Milliseconds()

	switch {
	case ledgerErr != nil:
		audit.Status = models.StatusError
		audit.StatusCode = 500
		audit.ErrorMessage = ledgerErr.Error()
		s.writeAudit(ctx, audit)
		return nil, ledgerErr
	case feedbackErr != nil:
		audit.Status = models.StatusError
		audit.StatusCode = 500
		audit.ErrorMessage = feedbackErr.Error()
		s.writeAudit(ctx, audit)
		return nil, feedbackErr
	}

	audit.Status = models.StatusSuccess
	audit.StatusCode = 201
	s.writeAudit(ctx, audit)

	return feedback, nil
}

func (s *accountantService) RecordRejection(ctx context.Context, endpoint, method, ip, userAgent string, statusCode int, message string) {
	s.writeAudit(ctx, &models.APIRequest{
		Endpoint:     endpoint,
		Method:       method,
		Status:       models.StatusError,
		StatusCode:   statusCode,
		ErrorMessage: message,
		RequestID:    newRequestID(),
		IPAddress:    ip,
		UserAgent:    userAgent,
	})
}

// gate runs the pre-work checks. A rejection is audited here and the
// ledger stays untouched.
func (s *accountantService) gate(ctx context.Context, key *models.APIKey, scope string, audit *models.APIRequest, start time.Time) error {
	if err := s.apiKeys.Authorize(key, scope); err != nil {
		s.auditRejection(ctx, audit, 403, err, start)
		return err
	}

	if err := s.quota.Admit(ctx, key.UserID, key.User.Plan); err != nil {
		code := 500
		if stderrors.Is(err, errors.ErrQuotaExceeded) {
			code = 429
		}
		s.auditRejection(ctx, audit, code, err, start)
		return err
	}

	return nil
}

// settle applies the ledger increment for an admitted request, retrying
// once before escalating.
func (s *accountantService) settle(ctx context.Context, key *models.APIKey, category string) (int64, error) {
	year, month, _ := currentPeriod(time.Now())

	count, err := s.usageRepo.IncrementAndGet(ctx, key.UserID, year, month, category)
	if err == nil {
		return count, nil
	}

	logger.Logger.WithFields(logrus.Fields{
		"error":   err,
		"user_id": key.UserID,
	}).Warn("Usage increment failed, retrying")

	select {
	case <-ctx.Done():
		logger.Logger.WithFields(logrus.Fields{
			"error":   err,
			"user_id": key.UserID,
			"year":    year,
			"month":   month,
		}).Error("Usage increment abandoned, caller gone before retry")
		return 0, errors.ErrLedgerWrite
	case <-time.After(ledgerRetryDelay):
	}

	count, err = s.usageRepo.IncrementAndGet(ctx, key.UserID, year, month, category)
	if err == nil {
		return count, nil
	}

	logger.Logger.WithFields(logrus.Fields{
		"error":   err,
		"user_id": key.UserID,
		"year":    year,
		"month":   month,
	}).Error("Usage increment failed after retry, billing row lost")

	return 0, errors.ErrLedgerWrite
}

func (s *accountantService) auditRejection(ctx context.Context, audit *models.APIRequest, code int, cause error, start time.Time) {
	audit.Status = models.StatusError
	audit.StatusCode = code
	audit.ErrorMessage = cause.Error()
	audit.ProcessingTimeMs = time.Since(start).Milliseconds()
	s.writeAudit(ctx, audit)
}

func (s *accountantService) writeAudit(ctx context.Context, audit *models.APIRequest) {
	if err := s.logRepo.Create(ctx, audit); err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"error":      err,
			"endpoint":   audit.Endpoint,
			"request_id": audit.RequestID,
		}).Error("Failed to write audit row")
	}
}

func (s *accountantService) classify(ctx context.Context, text string, textContext map[string]string) (*Prediction, bool, error) {
	cacheKey := predictionCacheKey(text, textContext)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
			var prediction Prediction
			if err := json.Unmarshal([]byte(raw), &prediction); err == nil {
				return &prediction, true, nil
			}
		}
	}

	prediction, err := s.classifier.Classify(ctx, text, textContext)
	if err != nil {
		return nil, false, err
	}

	return prediction, false, nil
}

func (s *accountantService) cachePrediction(ctx context.Context, text string, textContext map[string]string, prediction *Prediction) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, predictionCacheKey(text, textContext), prediction, s.cacheTTL); err != nil {
		logger.Logger.WithFields(logrus.Fields{"error": err}).Warn("Failed to cache prediction")
	}
}

func (s *accountantService) notifyDetection(userID uuid.UUID, prediction *Prediction, requestID string) {
	if s.notifier == nil || prediction.Confidence < s.threshold {
		return
	}

	var event string
	switch prediction.Category {
	case CategorySpam:
		event = models.EventSpamDetected
	case CategoryPhishing:
		event = models.EventPhishingDetected
	default:
		return
	}

	s.notifier.Notify(userID, event, map[string]interface{}{
		"event":      event,
		"category":   prediction.Category,
		"confidence": prediction.Confidence,
		"request_id": requestID,
	})
}

func predictionCacheKey(text string, textContext map[string]string) string {
	h := sha256.New()
	h.Write([]byte(text))
	if len(textContext) > 0 {
		if b, err := json.Marshal(textContext); err == nil {
			h.Write(b)
		}
	}
	return "prediction:" + hex.EncodeToString(h.Sum(nil))
}
