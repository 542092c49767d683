package observability_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/config"
	"github.com/spec-kit/hubops-service/internal/observability"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := observability.NewLogger(config.LoggerConfig{Level: "chatty"})
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zap.DebugLevel) || !logger.Core().Enabled(zap.InfoLevel) {
		t.Fatal("unknown level must fall back to info")
	}
}

func TestMetricsRecorders(t *testing.T) {
	m := observability.NewMetrics("test")
	m.TicketAction("accept", "applied")
	m.TicketAction("accept", "applied")
	m.TicketAction("accept", "forbidden")
	m.SweepCompleted(3, nil)
	m.SweepCompleted(0, errors.New("boom"))
	m.RecordRequest("/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordError("/tickets", "GET", "NOT_FOUND")

	expected := `
# HELP test_ticket_actions_total Ticket lifecycle actions by outcome
# TYPE test_ticket_actions_total counter
test_ticket_actions_total{action="accept",outcome="applied"} 2
test_ticket_actions_total{action="accept",outcome="forbidden"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_ticket_actions_total"); err != nil {
		t.Fatal(err)
	}
	expected = `
# HELP test_scheduler_tickets_created_total Tickets materialized from recurring tasks
# TYPE test_scheduler_tickets_created_total counter
test_scheduler_tickets_created_total 3
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_scheduler_tickets_created_total"); err != nil {
		t.Fatal(err)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *observability.Metrics
	m.TicketAction("accept", "applied")
	m.SweepCompleted(1, nil)
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
}

func TestRequestLoggerAndHandler(t *testing.T) {
	m := observability.NewMetrics("hubops")
	app := fiber.New()
	app.Use(observability.RequestLogger(zap.NewNop(), m))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(observability.RequestID(c))
	})
	app.Get("/metrics", m.Handler())

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(observability.RequestIDHeader, "abc-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "abc-123" || resp.Header.Get(observability.RequestIDHeader) != "abc-123" {
		t.Fatalf("request id not propagated: body=%q header=%q", body, resp.Header.Get(observability.RequestIDHeader))
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get(observability.RequestIDHeader) == "" {
		t.Fatal("request id must be generated")
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `hubops_http_requests_total{method="GET",path="/ping",status="200"} 2`) {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}
