package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	auction "gift-auction/internal/auctionService"
	"gift-auction/internal/config"
	"gift-auction/internal/events"
	"gift-auction/internal/server"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var testDefaults = config.AuctionDefaults{
	RoundDuration:        time.Minute,
	AntiSnipingWindow:    10 * time.Second,
	AntiSnipingExtension: 10 * time.Second,
	MaxExtensions:        2,
}

// testEnv is a full router over an in-memory service driven by a mock clock.
type testEnv struct {
	router *gin.Engine
	clock  *clock.Mock
	reg    *prometheus.Registry
}

// SetupTestRouter initializes the router with in-memory backends for integration testing.
func SetupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()

	svc := auction.NewAuctionService(auction.Options{
		Clock: mock,
		Sink:  events.Multi{events.LogSink{}, events.NewMetricsSink(reg)},
	})
	t.Cleanup(svc.Stop)

	return &testEnv{
		router: server.SetupRouter(svc, testDefaults, reg),
		clock:  mock,
		reg:    reg,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the response.
// For 2xx responses the envelope's data is returned; otherwise the whole envelope.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any, headers ...string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if w.Code >= 200 && w.Code < 300 {
			if data, ok := resp["data"].(map[string]any); ok {
				resp = data
			}
		}
	}

	return resp, w
}

// ExecuteListRequest fetches an endpoint whose data is a JSON array.
func ExecuteListRequest(t *testing.T, router *gin.Engine, url string) ([]any, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", url, nil))

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	data, _ := resp["data"].([]any)
	return data, w
}
