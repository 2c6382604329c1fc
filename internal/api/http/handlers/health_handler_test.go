package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

func newHealthApp(redisClient *redis.Client) *fiber.App {
	h := NewHealthHandler("helpdesk-service", "test", nil, redisClient, observability.NewMetrics())
	app := fiber.New()
	app.Get("/health/ready", h.Ready)
	return app
}

func TestReadyWithoutDependencies(t *testing.T) {
	app := newHealthApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("in-memory mode should be ready, got %d", resp.StatusCode)
	}
}

func TestReadyWithUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()
	app := newHealthApp(client)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil), 5000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("a redis outage must not make the service unready, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "degraded") {
		t.Fatalf("expected the redis outage to be reported as degraded, got %s", body)
	}
}
