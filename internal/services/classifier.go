package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	CategoryHam      = "ham"
	CategorySpam     = "spam"
	CategoryPhishing = "phishing"
)

// Prediction is the classification result for one text.
type Prediction struct {
	Category   string             `json:"category"`
	Confidence float64            `json:"confidence"`
	RiskLevel  string             `json:"risk_level"`
	Scores     map[string]float64 `json:"scores"`
	Flags      []string           `json:"flags,omitempty"`
}

// Classifier is the external spam/phishing detection capability. The model
// behind it is a black box; latency and failures are the caller's problem
// to record, never to crash on.
type Classifier interface {
	Classify(ctx context.Context, text string, textContext map[string]string) (*Prediction, error)
}

type httpClassifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClassifier returns a Classifier backed by the ML inference
// service at baseURL.
func NewHTTPClassifier(baseURL string, timeout time.Duration) Classifier {
	return &httpClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

func (c *httpClassifier) Classify(ctx context.Context, text string, textContext map[string]string) (*Prediction, error) {
	body, err := json.Marshal(classifyRequest{Text: text, Context: textContext})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %v", err)
	}

	return &prediction, nil
}
