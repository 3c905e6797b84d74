package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/shinyyama/inventory-backend/internal/apperr"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"deadline", fmt.Errorf("gemini generate: %w", context.DeadlineExceeded), apperr.KindAITimeout},
		{"unauthenticated", genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, apperr.KindAIAuth},
		{"quota", fmt.Errorf("wrap: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}), apperr.KindAIQuota},
		{"unavailable", genai.APIError{Code: 503}, apperr.KindAINetwork},
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, apperr.KindAIGeneric},
		{"net timeout", timeoutErr{}, apperr.KindAITimeout},
		{"api key text", errors.New("API key not valid"), apperr.KindAIAuth},
		{"other", errors.New("boom"), apperr.KindAIGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAsAppError_HidesProviderText(t *testing.T) {
	err := AsAppError(genai.APIError{Code: 429, Message: "secret provider detail"})
	assert.Equal(t, apperr.KindAIQuota, err.Kind)
	assert.NotContains(t, err.Message, "secret")
	assert.Error(t, err.Unwrap())

	parseErr := AsAppError(fmt.Errorf("%w: empty name", ErrParseFailed))
	assert.Equal(t, apperr.KindAIGeneric, parseErr.Kind)
}
