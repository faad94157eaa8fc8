package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureNone},
		{"rate limit", ErrRateLimit, FailureRateLimit},
		{"wrapped rate limit", fmt.Errorf("openai: %w: slow down", ErrRateLimit), FailureRateLimit},
		{"model", fmt.Errorf("%w: model not found", ErrModelUnavailable), FailureModel},
		{"down", ErrProviderDown, FailureGeneric},
		{"bad response", ErrBadResponse, FailureGeneric},
		{"unknown", errors.New("boom"), FailureGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
