package integration_testing

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/config"
	"github.com/bhackerb/PeakForm-C/internal/server"

	"github.com/stretchr/testify/require"
)

const serverHost = "localhost"

// Suite runs the real service against a fake Anthropic API.
type Suite struct {
	server          *server.Server
	llm             *httptest.Server
	endpoint        string
	metricsEndpoint string
	client          *http.Client

	mutex       sync.Mutex
	llmRequests []string
	llmReply    string
	llmStatus   int
}

func newSuite(t *testing.T) *Suite {
	t.Helper()

	suite := &Suite{
		client:    &http.Client{Timeout: 10 * time.Second},
		llmReply:  "### 1. Strategy alignment check\nOn track.",
		llmStatus: http.StatusOK,
	}
	suite.llm = httptest.NewServer(http.HandlerFunc(suite.handleMessages))

	port, err := freePort()
	require.NoError(t, err)
	metricsPort, err := freePort()
	require.NoError(t, err)

	cfg := getTestConfig(port, metricsPort, suite.llm.URL)
	suite.endpoint = fmt.Sprintf("http://%s", net.JoinHostPort(serverHost, strconv.Itoa(port)))
	suite.metricsEndpoint = fmt.Sprintf("http://%s", net.JoinHostPort(serverHost, strconv.Itoa(metricsPort)))

	suite.server, err = server.NewServer(server.NewServerParams{
		Config:                  cfg,
		AnthropicAPIKey:         "test-key",
		VersionInfo:             "test-version-info",
		HoneycombTracingEnabled: false,
	})
	require.NoError(t, err)
	suite.server.Serve(cfg.Host, cfg.Port)
	t.Cleanup(suite.cleanup)

	require.Eventually(t, func() bool {
		resp, err := suite.client.Get(suite.endpoint + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server did not come up")

	return suite
}

func (s *Suite) cleanup() {
	if s.server != nil {
		s.server.GracefulShutdown()
	}
	s.client.CloseIdleConnections()
	s.llm.Close()
}

func (s *Suite) handleMessages(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mutex.Lock()
	s.llmRequests = append(s.llmRequests, string(body))
	reply, status := s.llmReply, s.llmStatus
	s.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_, _ = fmt.Fprint(w, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`)
		return
	}
	_, _ = fmt.Fprintf(w, `{"id": "msg_it", "content": [{"type": "text", "text": %q}], "stop_reason": "end_turn"}`, reply)
}

func (s *Suite) setLLMStatus(status int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.llmStatus = status
}

func (s *Suite) llmCalls() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.llmRequests...)
}

func getTestConfig(port, metricsPort int, llmURL string) *config.Config {
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.Host = serverHost
	cfg.Port = port
	cfg.PrometheusMetricsHost = serverHost
	cfg.PrometheusMetricsPort = strconv.Itoa(metricsPort)
	cfg.LLMBaseURL = llmURL
	cfg.LLMTimeout.Duration = 5 * time.Second
	return cfg
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(serverHost, "0"))
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port, nil
}
