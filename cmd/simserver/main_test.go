package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/signalsfoundry/discretesim/internal/logging"
)

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestRunServesMetricsAndSpawnEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := Config{
		MetricsAddress:   lis.Addr().String(),
		LogLevel:         "warn",
		LogFormat:        "text",
		Tick:             20 * time.Millisecond,
		InitialSatellite: "iss",
		TLELine1:         issTLE1,
		TLELine2:         issTLE2,
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg, log, lis) }()

	base := "http://" + lis.Addr().String()

	var metricsResp *http.Response
	for attempt := 0; attempt < 50; attempt++ {
		metricsResp, err = http.Get(base + "/metrics")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", metricsResp.StatusCode)
	}

	body, err := json.Marshal(spawnRequest{Name: "leo-2", TLELine1: issTLE1, TLELine2: issTLE2})
	if err != nil {
		t.Fatalf("marshal spawn request: %v", err)
	}
	spawnResp, err := http.Post(base+"/spawn", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /spawn: %v", err)
	}
	defer spawnResp.Body.Close()
	if spawnResp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /spawn status = %d, want 202", spawnResp.StatusCode)
	}

	badResp, err := http.Post(base+"/spawn", "application/json", bytes.NewReader([]byte(`{"name":""}`)))
	if err != nil {
		t.Fatalf("POST /spawn (invalid): %v", err)
	}
	defer badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST /spawn (invalid) status = %d, want 400", badResp.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after context cancellation")
	}
}

func TestEnvOrDefaultAndEnvDuration(t *testing.T) {
	t.Setenv("SIMCORE_TEST_STRING", "")
	if got := envOrDefault("SIMCORE_TEST_STRING", "fallback"); got != "fallback" {
		t.Fatalf("envOrDefault with unset var = %q, want %q", got, "fallback")
	}
	t.Setenv("SIMCORE_TEST_STRING", "set")
	if got := envOrDefault("SIMCORE_TEST_STRING", "fallback"); got != "set" {
		t.Fatalf("envOrDefault with set var = %q, want %q", got, "set")
	}

	t.Setenv("SIMCORE_TEST_DURATION", "not-a-duration")
	if got := envDuration("SIMCORE_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("envDuration with invalid value = %v, want fallback %v", got, time.Second)
	}
	t.Setenv("SIMCORE_TEST_DURATION", "250ms")
	if got := envDuration("SIMCORE_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Fatalf("envDuration with valid value = %v, want 250ms", got)
	}
}
