package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// GenericMessage is shown when the backend gives no usable detail.
const GenericMessage = "Something went wrong. Please try again."

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

func (e *APIError) Status() int     { return e.StatusCode }
func (e *APIError) Message() string { return e.Detail }

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// ErrNetwork wraps transport failures (no response from the backend).
var ErrNetwork = errors.New("backend unreachable")

// Message returns the text a user should see for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, ErrNetwork) {
		return "Network error. Please check your connection."
	}
	return GenericMessage
}

// parseDetail pulls the human message out of a FastAPI-style error body.
func parseDetail(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if d := detailText(payload.Detail); d != "" {
			return d
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if status >= http.StatusInternalServerError {
		return GenericMessage
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if item.Msg != "" {
				return item.Msg
			}
		}
	}
	return ""
}

// Notifier surfaces client errors to the user before they are returned.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }

type logNotifier struct {
	logger *zerolog.Logger
}

// LogNotifier writes surfaced errors to logger at warn level.
func LogNotifier(logger *zerolog.Logger) Notifier {
	return logNotifier{logger: logger}
}

func (n logNotifier) Notify(err error) {
	ev := n.logger.Warn().Err(err)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		ev = ev.Int("status", apiErr.StatusCode).Str("path", apiErr.Path)
	}
	ev.Msg(Message(err))
}
