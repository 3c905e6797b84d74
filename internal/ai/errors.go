package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/shinyyama/inventory-backend/internal/apperr"
)

// Classify maps a provider failure onto one of the user-facing AI error kinds.
func Classify(err error) apperr.Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.KindAITimeout
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden,
			apiErr.Status == "UNAUTHENTICATED", apiErr.Status == "PERMISSION_DENIED":
			return apperr.KindAIAuth
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Status == "RESOURCE_EXHAUSTED":
			return apperr.KindAIQuota
		case apiErr.Code == http.StatusGatewayTimeout, apiErr.Status == "DEADLINE_EXCEEDED":
			return apperr.KindAITimeout
		case apiErr.Code == http.StatusServiceUnavailable, apiErr.Status == "UNAVAILABLE":
			return apperr.KindAINetwork
		}
		return apperr.KindAIGeneric
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperr.KindAITimeout
		}
		return apperr.KindAINetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "api_key"):
		return apperr.KindAIAuth
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return apperr.KindAIQuota
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return apperr.KindAITimeout
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"), strings.Contains(msg, "dial"):
		return apperr.KindAINetwork
	}
	return apperr.KindAIGeneric
}

var userMessages = map[apperr.Kind]string{
	apperr.KindAIAuth:    "AIサービスの認証に失敗しました。しばらくしてから再度お試しください",
	apperr.KindAIQuota:   "AIサービスの利用上限に達しました。しばらくしてから再度お試しください",
	apperr.KindAINetwork: "AIサービスに接続できませんでした。通信環境を確認して再度お試しください",
	apperr.KindAITimeout: "AIサービスの応答がタイムアウトしました。再度お試しください",
	apperr.KindAIGeneric: "AIによる解析に失敗しました。再度お試しください",
}

// AsAppError wraps a provider failure without exposing its text to clients.
func AsAppError(err error) *apperr.Error {
	kind := Classify(err)
	if errors.Is(err, ErrParseFailed) {
		kind = apperr.KindAIGeneric
	}
	return apperr.Wrap(kind, userMessages[kind], err)
}
