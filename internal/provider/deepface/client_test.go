package deepface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	config := DefaultConfig()
	config.BaseURL = url
	config.Backoff = 5 * time.Millisecond
	return config
}

func TestClient_Represent(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse interface{}
		serverStatus   int
		wantErr        bool
		wantErrContain string
		validateResp   func(*testing.T, *RepresentResponse)
	}{
		{
			name: "successful response with single face",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{
						Embedding:      make([]float64, 128),
						FacialArea:     FacialArea{X: 10, Y: 20, W: 100, H: 100},
						FaceConfidence: 0.97,
					},
				},
			},
			serverStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				require.Len(t, resp.Results, 1)
				assert.Len(t, resp.Results[0].Embedding, 128)
				assert.Equal(t, FacialArea{X: 10, Y: 20, W: 100, H: 100}, resp.Results[0].FacialArea)
				assert.InDelta(t, 0.97, resp.Results[0].FaceConfidence, 1e-9)
			},
		},
		{
			name: "successful response with multiple faces",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{Embedding: make([]float64, 128), FacialArea: FacialArea{X: 10, Y: 20, W: 100, H: 100}},
					{Embedding: make([]float64, 128), FacialArea: FacialArea{X: 150, Y: 30, W: 90, H: 90}},
				},
			},
			serverStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				assert.Len(t, resp.Results, 2)
			},
		},
		{
			name:           "empty response",
			serverResponse: RepresentResponse{Results: []RepresentResult{}},
			serverStatus:   http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				assert.Empty(t, resp.Results)
			},
		},
		{
			name:           "server error 500",
			serverResponse: map[string]string{"error": "internal server error"},
			serverStatus:   http.StatusInternalServerError,
			wantErr:        true,
			wantErrContain: "status 500",
		},
		{
			name:           "bad request 400",
			serverResponse: map[string]string{"error": "invalid image format"},
			serverStatus:   http.StatusBadRequest,
			wantErr:        true,
			wantErrContain: "status 400",
		},
		{
			name:           "service unavailable 503",
			serverResponse: map[string]string{"error": "service temporarily unavailable"},
			serverStatus:   http.StatusServiceUnavailable,
			wantErr:        true,
			wantErrContain: "face embedding sidecar unreachable",
		},
		{
			name:           "invalid json response",
			serverResponse: "not a valid json",
			serverStatus:   http.StatusOK,
			wantErr:        true,
			wantErrContain: "invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/represent", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req RepresentRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "data:image/jpeg;base64,dGVzdA==", req.Img)
				assert.Equal(t, "Dlib", req.Model)
				assert.Equal(t, "opencv", req.Detector)
				assert.False(t, req.EnforceDetection)
				assert.True(t, req.Align)

				w.WriteHeader(tt.serverStatus)
				if str, ok := tt.serverResponse.(string); ok {
					_, _ = w.Write([]byte(str))
				} else {
					_ = json.NewEncoder(w).Encode(tt.serverResponse)
				}
			}))
			defer server.Close()

			config := testConfig(server.URL)
			config.RetryCount = 0

			client := NewClient(config)
			resp, err := client.Represent(context.Background(), "dGVzdA==", "opencv")

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrContain != "" {
					assert.Contains(t, err.Error(), tt.wantErrContain)
				}
				return
			}

			require.NoError(t, err)
			if tt.validateResp != nil {
				tt.validateResp(t, resp)
			}
		})
	}
}

func TestClient_RepresentSkipDetector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RepresentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "skip", req.Detector)
		_ = json.NewEncoder(w).Encode(RepresentResponse{})
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Represent(context.Background(), "dGVzdA==", "skip")
	require.NoError(t, err)
}

func TestClient_RetryOnFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "service unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(RepresentResponse{Results: []RepresentResult{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	resp, err := client.Represent(context.Background(), "dGVzdA==", "opencv")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int32(3), attempts.Load(), "expected exactly 3 attempts")
}

func TestClient_RetryExhaustion(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 2

	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==", "opencv")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), attempts.Load(), "expected initial attempt + 2 retries")
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Represent(context.Background(), "dGVzdA==", "opencv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(RepresentResponse{})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(testConfig(server.URL)).Represent(ctx, "dGVzdA==", "opencv")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(RepresentResponse{})
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.Timeout = 50 * time.Millisecond
	config.RetryCount = 1

	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==", "opencv")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 6, want: maxBackoff},
		{attempt: 40, want: maxBackoff},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestNewClient(t *testing.T) {
	config := Config{
		BaseURL:    "http://localhost:5005",
		Timeout:    10 * time.Second,
		Model:      "Dlib",
		Detector:   "opencv",
		RetryCount: 3,
	}

	client := NewClient(config)

	require.NotNil(t, client)
	require.NotNil(t, client.httpClient)
	assert.Equal(t, config.Timeout, client.httpClient.Timeout)
	assert.Equal(t, time.Second, client.config.Backoff, "zero backoff falls back to one second")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "http://localhost:5005", config.BaseURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, "Dlib", config.Model)
	assert.Equal(t, "opencv", config.Detector)
	assert.Equal(t, 3, config.RetryCount)
}
