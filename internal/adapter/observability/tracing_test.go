package observability

import (
	"context"
	"testing"

	"github.com/noeyos-p/hirehub-ai/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if shutdown != nil {
		t.Fatalf("expected nil shutdown when tracing is disabled")
	}
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	cfg := config.Config{OTLPEndpoint: "localhost:4317", OTELServiceName: "test-service", AppEnv: "prod"}

	// The gRPC exporter connects lazily, so construction succeeds without a collector.
	shutdown, err := SetupTracing(cfg)
	if err != nil {
		if shutdown != nil {
			t.Fatal("expected nil shutdown function on error")
		}
		return
	}
	if shutdown != nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx)
	}
}
