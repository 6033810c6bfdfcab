package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPClient implements HTTPDoer for single-call tests
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// doerFunc adapts a function into an HTTPDoer, so poll-loop tests can build a
// fresh response body per attempt.
type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func newTestAnalysisClient(doer HTTPDoer) *AnalysisClient {
	return &AnalysisClient{
		endpoint:        "https://analysis.example.com",
		apiKey:          "test-key",
		modelID:         defaultAnalysisModel,
		client:          doer,
		pollInterval:    0,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestSubmitSuccess(t *testing.T) {
	client := &MockHTTPClient{}
	resp := jsonResponse(http.StatusAccepted, "")
	resp.Header.Set("Operation-Location", "https://analysis.example.com/operations/op-1")

	client.On("Do", mock.MatchedBy(func(r *http.Request) bool {
		return r.Method == http.MethodPost &&
			r.Header.Get("Ocp-Apim-Subscription-Key") == "test-key" &&
			strings.Contains(r.URL.String(), "documentModels/prebuilt-document:analyze")
	})).Return(resp, nil)

	ac := newTestAnalysisClient(client)
	operationURL, err := ac.Submit(context.Background(), "https://files.example.com/invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://analysis.example.com/operations/op-1", operationURL)
	client.AssertExpectations(t)
}

func TestSubmitServiceUnavailable(t *testing.T) {
	client := &MockHTTPClient{}
	client.On("Do", mock.Anything).Return(jsonResponse(http.StatusForbidden, `{"error":{"code":"403","message":"bad key"}}`), nil)

	ac := newTestAnalysisClient(client)
	_, err := ac.Submit(context.Background(), "https://files.example.com/invoice.pdf")
	require.Error(t, err)
	assert.Equal(t, CodeServiceUnavailable, ErrorCode(err))
	// The raw body is kept as diagnostic detail
	assert.Contains(t, err.Error(), "bad key")
}

func TestSubmitTransportError(t *testing.T) {
	client := &MockHTTPClient{}
	client.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))

	ac := newTestAnalysisClient(client)
	_, err := ac.Submit(context.Background(), "https://files.example.com/invoice.pdf")
	require.Error(t, err)
	assert.Equal(t, CodeServiceUnavailable, ErrorCode(err))
}

func TestSubmitMissingOperationHandle(t *testing.T) {
	client := &MockHTTPClient{}
	client.On("Do", mock.Anything).Return(jsonResponse(http.StatusAccepted, ""), nil)

	ac := newTestAnalysisClient(client)
	_, err := ac.Submit(context.Background(), "https://files.example.com/invoice.pdf")
	require.Error(t, err)
	assert.Equal(t, CodeMissingOperationHandle, ErrorCode(err))
}

func TestPollSucceededReturnsImmediately(t *testing.T) {
	calls := 0
	ac := newTestAnalysisClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{
			"status": "succeeded",
			"analyzeResult": {"documents": [{"fields": {"InvoiceTotal": {"content": "99.50"}}}]}
		}`), nil
	}))

	result, err := ac.Poll(context.Background(), "https://analysis.example.com/operations/op-1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Fields().Len())
}

func TestPollSucceedsAfterRunning(t *testing.T) {
	calls := 0
	ac := newTestAnalysisClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return jsonResponse(http.StatusOK, `{"status": "running"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"status": "succeeded", "analyzeResult": {"documents": []}}`), nil
	}))

	_, err := ac.Poll(context.Background(), "https://analysis.example.com/operations/op-1")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollAnalysisFailed(t *testing.T) {
	ac := newTestAnalysisClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status": "failed", "error": {"code": "InvalidContent", "message": "corrupt pdf"}}`), nil
	}))

	_, err := ac.Poll(context.Background(), "https://analysis.example.com/operations/op-1")
	require.Error(t, err)
	assert.Equal(t, CodeAnalysisFailed, ErrorCode(err))
	assert.Contains(t, err.Error(), "corrupt pdf")
}

func TestPollTimeoutAfterExactlyMaxAttempts(t *testing.T) {
	calls := 0
	ac := newTestAnalysisClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{"status": "running"}`), nil
	}))

	_, err := ac.Poll(context.Background(), "https://analysis.example.com/operations/op-1")
	require.Error(t, err)
	assert.Equal(t, CodeAnalysisTimeout, ErrorCode(err))
	assert.Equal(t, defaultMaxPollAttempts, calls)
}

func TestPollCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ac := newTestAnalysisClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		cancel()
		return jsonResponse(http.StatusOK, `{"status": "running"}`), nil
	}))
	ac.pollInterval = time.Hour // only the ctx.Done branch can fire

	_, err := ac.Poll(ctx, "https://analysis.example.com/operations/op-1")
	require.Error(t, err)
	assert.Equal(t, CodeAnalysisTimeout, ErrorCode(err))
}
