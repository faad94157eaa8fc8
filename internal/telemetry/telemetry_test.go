package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"http endpoint", Config{Endpoint: "http://collector:4318"}, false},
		{"https endpoint with ratio", Config{Endpoint: "https://otel.example.com", SampleRatio: 0.25}, false},
		{"missing scheme", Config{Endpoint: "collector:4318"}, true},
		{"grpc scheme", Config{Endpoint: "grpc://collector:4317"}, true},
		{"ratio too high", Config{SampleRatio: 1.5}, true},
		{"negative ratio", Config{SampleRatio: -0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	tp, shutdown, err := Setup(context.Background(), Config{}, "test", slog.Default())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Errorf("provider = %T, want noop.TracerProvider", tp)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	if span.SpanContext().IsValid() {
		t.Error("noop span should not carry a valid span context")
	}
	span.End()
}

func TestSetup_InvalidConfig(t *testing.T) {
	t.Parallel()

	if _, _, err := Setup(context.Background(), Config{Endpoint: "nope"}, "test", nil); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}

func TestSetup_Exporter(t *testing.T) {
	t.Parallel()

	// The exporter connects lazily, so no collector is needed here.
	tp, shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "http://127.0.0.1:1",
		ServiceName: "earmeout-test",
		Headers:     map[string]string{"x-api-key": "k"},
	}, "v0.0.0", slog.Default())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, ok := tp.(noop.TracerProvider); ok {
		t.Fatal("expected an SDK provider when an endpoint is set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Shutdown with a canceled context must return promptly.
	_ = shutdown(ctx)
}
