package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 100, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=5000", 1000, 0},
		{"?limit=-1&offset=-5", 100, 0},
		{"?limit=abc", 100, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/results"+tc.query, nil)
		got := ParsePagination(req, 100, 1000)
		if got.Limit != tc.wantLimit || got.Offset != tc.wantOffset {
			t.Fatalf("%q: expected %d/%d, got %+v", tc.query, tc.wantLimit, tc.wantOffset, got)
		}
	}
}

func TestValidatorRequiredAndReject(t *testing.T) {
	v := NewValidator()
	v.Required("city", "   ", "is required")
	v.Required("file", "x", "is required")
	if !v.HasIssues() {
		t.Fatal("expected issues")
	}
	issues := v.Issues()
	if len(issues) != 1 || issues[0].Field != "city" {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req") {
		t.Fatal("expected reject to write a response")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded host, got %q", got)
	}
}
