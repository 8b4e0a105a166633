package rewardclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"reward-core/pkg/errno"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap lets callers match every backend failure with errors.Is(err, errno.ErrBackend).
func (e *APIError) Unwrap() error {
	return errno.ErrBackend
}

// Retryable: server side failures only. 4xx never changes on retry.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// extractMessage pulls a human readable message out of a DRF style error body.
func extractMessage(body []byte) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"error", "detail", "message", "non_field_errors"} {
			if v, ok := obj[key]; ok {
				return flatten(v)
			}
		}
		// 字段级错误: {"wallet_address": ["Enter a valid address."]}
		var parts []string
		for k, v := range obj {
			parts = append(parts, k+": "+flatten(v))
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "…"
	}
	return msg
}

func flatten(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
