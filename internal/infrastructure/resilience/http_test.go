package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

type httpTestNetError struct{}

func (httpTestNetError) Error() string   { return "connection refused" }
func (httpTestNetError) Timeout() bool   { return false }
func (httpTestNetError) Temporary() bool { return true }

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"nil", nil, false, false},
		{"canceled", context.Canceled, false, false},
		{"gateway status", &HTTPStatusError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}, true, true},
		{"client status", &HTTPStatusError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}, false, false},
		{"wrapped status", fmt.Errorf("embed: %w", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Status: "503"}), true, true},
		{"net error", httpTestNetError{}, true, true},
		{"unknown", errors.New("boom"), false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := ClassifyHTTPError(tc.err)
			if class.Retryable != tc.retryable || class.RecordFailure != tc.recordFailure {
				t.Fatalf("got %+v, want retryable=%v recordFailure=%v", class, tc.retryable, tc.recordFailure)
			}
		})
	}
}

func TestHTTPStatusErrorMessage(t *testing.T) {
	err := &HTTPStatusError{Operation: "rerank", Status: "503 Service Unavailable", Body: "model loading"}
	if !strings.Contains(err.Error(), "rerank") || !strings.Contains(err.Error(), "model loading") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapTemporary(t *testing.T) {
	retryable := &HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Status: "503"}
	if err := WrapTemporary("embed query", retryable); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("retryable failure should become temporary, got %v", err)
	}

	permanent := &HTTPStatusError{StatusCode: http.StatusBadRequest, Status: "400"}
	if err := WrapTemporary("embed query", permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must not become temporary, got %v", err)
	}

	if err := WrapTemporary("embed query", nil); err != nil {
		t.Fatalf("nil passes through, got %v", err)
	}
}
