package services

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/config"
	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClassifier struct {
	prediction *Prediction
	err        error
	calls      int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, textContext map[string]string) (*Prediction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prediction, nil
}

type recordedEvent struct {
	userID  uuid.UUID
	event   string
	payload map[string]interface{}
}

type recordingNotifier struct {
	events []recordedEvent
}

func (n *recordingNotifier) Notify(userID uuid.UUID, event string, payload map[string]interface{}) {
	n.events = append(n.events, recordedEvent{userID: userID, event: event, payload: payload})
}

type failingUsageRepo struct {
	repository.UsageRepository
	attempts int
}

func (f *failingUsageRepo) IncrementAndGet(ctx context.Context, userID uuid.UUID, year, month int, category string) (int64, error) {
	f.attempts++
	return 0, stderrors.New("connection reset by peer")
}

type accountantFixture struct {
	db         *gorm.DB
	svc        AccountantService
	apiKeys    APIKeyService
	classifier *fakeClassifier
	notifier   *recordingNotifier
}

func newAccountantFixture(t *testing.T, classifier *fakeClassifier, usageRepo repository.UsageRepository) *accountantFixture {
	t.Helper()

	db := newTestDB(t)
	if usageRepo == nil {
		usageRepo = repository.NewUsageRepository(db)
	}
	catalog := config.NewPlanCatalog()
	apiKeys := NewAPIKeyService(repository.NewAPIKeyRepository(db), "test")
	quota := NewQuotaService(repository.NewUsageRepository(db), catalog)
	notifier := &recordingNotifier{}

	svc := NewAccountantService(
		apiKeys,
		quota,
		usageRepo,
		repository.NewRequestLogRepository(db),
		repository.NewFeedbackRepository(db),
		classifier,
		nil,
		notifier,
		catalog,
		&config.WebhookConfig{ConfidenceThreshold: 0.8, DeliveryTimeout: time.Second},
		time.Minute,
	)

	return &accountantFixture{
		db:         db,
		svc:        svc,
		apiKeys:    apiKeys,
		classifier: classifier,
		notifier:   notifier,
	}
}

// issueKey creates a tenant and resolves a fresh key for it, so the key
// carries its owner the same way middleware hands it to the services.
func (f *accountantFixture) issueKey(t *testing.T, plan models.Plan, scopes []string) *models.APIKey {
	t.Helper()

	user := seedUser(t, f.db, plan)
	plaintext, _, err := f.apiKeys.Issue(context.Background(), user.ID, "test key", scopes)
	require.NoError(t, err)
	key, err := f.apiKeys.Resolve(context.Background(), plaintext)
	require.NoError(t, err)
	return key
}

func (f *accountantFixture) ledgerCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()

	var usage models.MonthlyUsage
	err := f.db.First(&usage, "user_id = ?", userID).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return usage.RequestsCount
}

func (f *accountantFixture) lastAudit(t *testing.T) *models.APIRequest {
	t.Helper()

	var audit models.APIRequest
	require.NoError(t, f.db.Order("id DESC").First(&audit).Error)
	return &audit
}

func analyzeInput() *AnalyzeInput {
	return &AnalyzeInput{
		Text:      "Buy cheap watches now!!!",
		Endpoint:  "/api/v1/analyze",
		Method:    "POST",
		IPAddress: "203.0.113.9",
		UserAgent: "test-agent",
	}
}

func TestAnalyzeHappyPath(t *testing.T) {
	classifier := &fakeClassifier{prediction: &Prediction{Category: CategorySpam, Confidence: 0.97, RiskLevel: "high"}}
	f := newAccountantFixture(t, classifier, nil)
	key := f.issueKey(t, models.FreePlan, nil)

	result, err := f.svc.Analyze(context.Background(), key, analyzeInput())
	require.NoError(t, err)

	assert.True(t, result.IsSpam)
	assert.Equal(t, CategorySpam, result.Category)
	assert.False(t, result.Cached)
	require.NotNil(t, result.Usage)
	assert.Equal(t, int64(1), result.Usage.CurrentCount)
	assert.Equal(t, int64(500), result.Usage.Limit)
	assert.Equal(t, int64(499), result.Usage.Remaining)

	assert.Equal(t, int64(1), f.ledgerCount(t, key.UserID))

	audit := f.lastAudit(t)
	assert.Equal(t, models.StatusSuccess, audit.Status)
	assert.Equal(t, 200, audit.StatusCode)
	assert.Equal(t, CategorySpam, audit.Category)
	assert.Equal(t, result.RequestID, audit.RequestID)

	var reloaded models.APIKey
	require.NoError(t, f.db.First(&reloaded, "id = ?", key.ID).Error)
	assert.Equal(t, int64(1), reloaded.TotalRequests)
}

func TestAnalyzeIncrementsOnceWhenClassifierFails(t *testing.T) {
	classifier := &fakeClassifier{err: stderrors.New("model timeout")}
	f := newAccountantFixture(t, classifier, nil)
	key := f.issueKey(t, models.FreePlan, nil)

	_, err := f.svc.Analyze(context.Background(), key, analyzeInput())
	assert.ErrorIs(t, err, errors.ErrClassification)

	// The request was admitted, so it is billed even though no verdict
	// came back.
	assert.Equal(t, int64(1), f.ledgerCount(t, key.UserID))

	audit := f.lastAudit(t)
	assert.Equal(t, models.StatusError, audit.Status)
	assert.Equal(t, 500, audit.StatusCode)
	assert.Equal(t, "model timeout", audit.ErrorMessage)
}

func TestAnalyzeMissingScopeNeverIncrements(t *testing.T) {
	classifier := &fakeClassifier{prediction: &Prediction{Category: CategoryHam, Confidence: 0.9}}
	f := newAccountantFixture(t, classifier, nil)
	key := f.issueKey(t, models.FreePlan, []string{models.ScopeStats})

	_, err := f.svc.Analyze(context.Background(), key, analyzeInput())
	assert.ErrorIs(t, err, errors.ErrKeyForbidden)

	assert.Zero(t, f.ledgerCount(t, key.UserID))
	assert.Zero(t, classifier.calls)

	audit := f.lastAudit(t)
	assert.Equal(t, models.StatusError, audit.Status)
	assert.Equal(t, 403, audit.StatusCode)
}

func TestAnalyzeQuotaExceededNeverIncrements(t *testing.T) {
	classifier := &fakeClassifier{prediction: &Prediction{Category: CategoryHam, Confidence: 0.9}}
	f := newAccountantFixture(t, classifier, nil)
	key := f.issueKey(t, models.FreePlan, nil)

	year, month, _ := currentPeriod(time.Now())
	require.NoError(t, f.db.Create(&models.MonthlyUsage{
		UserID:        key.UserID,
		Year:          year,
		Month:         month,
		RequestsCount: 500,
	}).Error)

	_, err := f.svc.Analyze(context.Background(), key, analyzeInput())
	assert.ErrorIs(t, err, errors.ErrQuotaExceeded)

	assert.Equal(t, int64(500), f.ledgerCount(t, key.UserID))
	assert.Zero(t, classifier.calls)

	audit := f.lastAudit(t)
	assert.Equal(t, 429, audit.StatusCode)
}

func TestAnalyzeLastAdmittedRequestCrossesTheLimit(t *testing.T) {
	classifier := &fakeClassifier{prediction: &Prediction{Category: CategoryHam, Confidence: 0.9}}
	f := newAccountantFixture(t, classifier, nil)
	key := f.issueKey(t, models.FreePlan, nil)

	year, month, _ := currentPeriod(time.Now())
	require.NoError(t, f.db.Create(&models.MonthlyUsage{
		UserID:        key.UserID,
		Year:          year,
		Month:         month,
		RequestsCount: 499,
	}).Error)

	// 499 < 500: admitted, and the settle takes the tenant to the limit.
	result, err := f.svc.Analyze(context.Background(), key, analyzeInput())
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.Usage.CurrentCount)
	assert.Zero(t, result.Usage.Remaining)

	// The next request finds the period full.
	_, err = f.svc.Analyze(context.Background(), key, analyzeInput())
	assert.ErrorIs(t, err, errors.ErrQuotaExceeded)
	assert.Equal(t, int64(500), f.ledgerCount(t, key.UserID))
}

func TestAnalyzeLedgerWriteRetriedThenEscalated(t *testing.T) {
	classifier := &fakeClassifier{prediction: &Prediction{Category: CategoryHam, Confidence: 0.9}}
	usageRepo := &failingUsageRepo{}
	f := newAccountantFixture(t, classifier, usageRepo)
	key := f.issueKey(t, models.FreePlan, nil)

	_, err := f.svc.Analyze(context.Background(), key, analyzeInput())
	assert.ErrorIs(t, err, errors.ErrLedgerWrite)
	assert.Equal(t, 2, usageRepo.attempts)

	audit := f.lastAudit(t)
	assert.Equal(t, models.StatusError, audit.Status)
	assert.Equal(t, 500, audit.StatusCode)
}

func TestSettleSkipsRetryWhenCallerIsGone(t *testing.T) {
	usageRepo := &failingUsageRepo{}
	f := newAccountantFixture(t, &fakeClassifier{}, usageRepo)
	key := f.issueKey(t, models.FreePlan, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.(*accountantService).settle(ctx, key, models.ScopeAnalyze)
	assert.ErrorIs(t, err, errors.ErrLedgerWrite)
	assert.Equal(t, 1, usageRepo.attempts)
}

func TestNotifierFiredForHighConfidenceDetections(t *testing.T) {
	tests := []struct {
		name       string
		prediction *Prediction
		wantEvent  string
	}{
		{
			name:       "confident spam",
			prediction: &Prediction{Category: CategorySpam, Confidence: 0.95},
			wantEvent:  models.EventSpamDetected,
		},
		{
			name:       "confident phishing",
			prediction: &Prediction{Category: CategoryPhishing, Confidence: 0.85},
			wantEvent:  models.EventPhishingDetected,
		},
		{
			name:       "ham never notifies",
			prediction: &Prediction{Category: CategoryHam, Confidence: 0.99},
		},
		{
			name:       "low confidence spam stays quiet",
			prediction: &Prediction{Category: CategorySpam, Confidence: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountantFixture(t, &fakeClassifier{prediction: tt.prediction}, nil)
			key := f.issueKey(t, models.ProPlan, nil)

			_, err := f.svc.Analyze(context.Background(), key, analyzeInput())
			require.NoError(t, err)

			if tt.wantEvent == "" {
				assert.Empty(t, f.notifier.events)
				return
			}
			require.Len(t, f.notifier.events, 1)
			assert.Equal(t, key.UserID, f.notifier.events[0].userID)
			assert.Equal(t, tt.wantEvent, f.notifier.events[0].event)
			assert.Equal(t, tt.prediction.Confidence, f.notifier.events[0].payload["confidence"])
		})
	}
}

func TestSubmitFeedbackStoresAndSettles(t *testing.T) {
	f := newAccountantFixture(t, &fakeClassifier{}, nil)
	key := f.issueKey(t, models.FreePlan, nil)

	feedback, err := f.svc.SubmitFeedback(context.Background(), key, &FeedbackInput{
		Text:              "totally legitimate newsletter",
		PredictedCategory: CategorySpam,
		CorrectCategory:   CategoryHam,
		Endpoint:          "/api/v1/feedback",
		Method:            "POST",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, feedback.ID)

	assert.Equal(t, int64(1), f.ledgerCount(t, key.UserID))

	var usage models.MonthlyUsage
	require.NoError(t, f.db.First(&usage, "user_id = ?", key.UserID).Error)
	assert.Equal(t, int64(1), usage.FeedbackRequests)
	assert.Zero(t, usage.AnalyzeRequests)

	audit := f.lastAudit(t)
	assert.Equal(t, models.StatusSuccess, audit.Status)
	assert.Equal(t, 201, audit.StatusCode)
}

func TestSubmitFeedbackForbiddenScope(t *testing.T) {
	f := newAccountantFixture(t, &fakeClassifier{}, nil)
	key := f.issueKey(t, models.FreePlan, []string{models.ScopeAnalyze})

	_, err := f.svc.SubmitFeedback(context.Background(), key, &FeedbackInput{
		Text:            "hello",
		CorrectCategory: CategoryHam,
		Endpoint:        "/api/v1/feedback",
		Method:          "POST",
	})
	assert.ErrorIs(t, err, errors.ErrKeyForbidden)
	assert.Zero(t, f.ledgerCount(t, key.UserID))
}

func TestRecordRejectionWritesAnonymousAudit(t *testing.T) {
	f := newAccountantFixture(t, &fakeClassifier{}, nil)

	f.svc.RecordRejection(context.Background(), "/api/v1/analyze", "POST", "198.51.100.7", "curl/8.0", 401, "Invalid API key")

	audit := f.lastAudit(t)
	assert.Nil(t, audit.UserID)
	assert.Nil(t, audit.APIKeyID)
	assert.Equal(t, 401, audit.StatusCode)
	assert.Equal(t, "Invalid API key", audit.ErrorMessage)
	assert.Equal(t, "198.51.100.7", audit.IPAddress)
}
