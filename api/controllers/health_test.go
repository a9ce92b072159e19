package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestHealthLive(t *testing.T) {
	handler := HealthLive(&config.Config{})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := dataField(t, rec)
	if data["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", data["status"])
	}
	if data["version"] != Version {
		t.Fatalf("expected version %s, got %v", Version, data["version"])
	}
	if data["timestamp"] == "" {
		t.Fatal("expected timestamp")
	}
}

func TestHealthReady(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	cfg := &config.Config{}

	handler := HealthReady(cfg, logg, &fakePinger{}, &fakePinger{})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if data := dataField(t, rec); data["status"] != "ready" {
		t.Fatalf("expected ready status, got %v", data["status"])
	}
}

func TestHealthReadyDependencyFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	cfg := &config.Config{}
	down := &fakePinger{err: errors.New("unreachable")}

	tests := []struct {
		name     string
		database pinger
		cache    pinger
	}{
		{name: "database down", database: down, cache: &fakePinger{}},
		{name: "redis down", database: &fakePinger{}, cache: down},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := HealthReady(cfg, logg, tc.database, tc.cache)
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503, got %d", rec.Code)
			}
		})
	}
}
