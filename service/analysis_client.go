package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	analysisAPIVersion   = "2024-02-29-preview"
	defaultAnalysisModel = "prebuilt-document"

	defaultPollInterval    = 1 * time.Second
	defaultMaxPollAttempts = 60
)

// HTTPDoer is the subset of http.Client the analysis client needs, kept as an
// interface so tests can substitute a mock transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AnalysisClient wraps the external document-analysis service: submit a file
// by URL, then poll the returned operation until it reaches a terminal state.
type AnalysisClient struct {
	endpoint string
	apiKey   string
	modelID  string

	client HTTPDoer

	pollInterval    time.Duration
	maxPollAttempts int
}

// NewAnalysisClient builds a client from environment configuration.
func NewAnalysisClient() (*AnalysisClient, error) {
	endpoint := strings.TrimRight(os.Getenv("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT"), "/")
	apiKey := strings.TrimSpace(os.Getenv("AZURE_DOCUMENT_INTELLIGENCE_API_KEY"))
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("missing analysis service configuration (AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT / AZURE_DOCUMENT_INTELLIGENCE_API_KEY)")
	}

	modelID := os.Getenv("ANALYSIS_MODEL_ID")
	if modelID == "" {
		modelID = defaultAnalysisModel
	}

	return &AnalysisClient{
		endpoint:        endpoint,
		apiKey:          apiKey,
		modelID:         modelID,
		client:          &http.Client{Timeout: 30 * time.Second},
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}, nil
}

// submitResponse mirrors the error envelope the service returns on a rejected
// submission; the raw body is kept as diagnostic detail either way.
type operationStatus struct {
	Status        string         `json:"status"`
	Error         *serviceError  `json:"error"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit sends the document at fileURL for analysis and returns the operation
// URL to poll for the result.
func (c *AnalysisClient) Submit(ctx context.Context, fileURL string) (string, error) {
	analysisURL := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.endpoint, c.modelID, analysisAPIVersion)

	body, err := json.Marshal(map[string]string{"urlSource": fileURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, analysisURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	log.Printf("Submitting document for analysis: model=%s url=%s", c.modelID, fileURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &PipelineError{Code: CodeServiceUnavailable, Message: "analysis submission failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		log.Printf("Analysis service rejected submission: status=%d body=%s", resp.StatusCode, string(raw))
		return "", &PipelineError{
			Code:    CodeServiceUnavailable,
			Message: fmt.Sprintf("analysis service returned status %d", resp.StatusCode),
			Detail:  string(raw),
		}
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", NewPipelineError(CodeMissingOperationHandle, "analysis response missing Operation-Location header")
	}

	log.Printf("Analysis initiated, operation: %s", operationURL)
	return operationURL, nil
}

// Poll queries the operation until the service reports succeeded or failed,
// sleeping a fixed interval between attempts. The attempt budget bounds the
// wait to roughly maxPollAttempts * pollInterval.
func (c *AnalysisClient) Poll(ctx context.Context, operationURL string) (*AnalyzeResult, error) {
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		status, err := c.fetchOperation(ctx, operationURL)
		if err != nil {
			return nil, err
		}

		log.Printf("Poll attempt %d/%d - status: %s", attempt, c.maxPollAttempts, status.Status)

		switch status.Status {
		case "succeeded":
			return status.AnalyzeResult, nil
		case "failed":
			detail := ""
			if status.Error != nil {
				detail = fmt.Sprintf("%s: %s", status.Error.Code, status.Error.Message)
			}
			return nil, &PipelineError{Code: CodeAnalysisFailed, Message: "analysis service reported failure", Detail: detail}
		}

		if attempt < c.maxPollAttempts {
			select {
			case <-time.After(c.pollInterval):
			case <-ctx.Done():
				return nil, &PipelineError{Code: CodeAnalysisTimeout, Message: "polling cancelled", Cause: ctx.Err()}
			}
		}
	}

	return nil, NewPipelineError(CodeAnalysisTimeout,
		fmt.Sprintf("analysis did not complete after %d attempts", c.maxPollAttempts))
}

func (c *AnalysisClient) fetchOperation(ctx context.Context, operationURL string) (*operationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &PipelineError{Code: CodeServiceUnavailable, Message: "poll request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}

	var status operationStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, &PipelineError{
			Code:    CodeServiceUnavailable,
			Message: "unparsable poll response",
			Detail:  string(raw),
			Cause:   err,
		}
	}
	return &status, nil
}
