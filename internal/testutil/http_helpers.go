package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// NewRequestWithURLParams builds a request with chi URL parameters set, for calling a
// handler directly without routing it. path may carry a query string.
//
// Example:
//
//	req := testutil.NewRequestWithURLParams(
//	    http.MethodDelete,
//	    "/api/transactions/"+id+"?userId=alice",
//	    map[string]string{"uuid": id},
//	)
func NewRequestWithURLParams(method, path string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if len(params) == 0 {
		return req
	}

	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// NewRequestWithQueryParams builds a request with queryParams encoded into the URL.
//
// Example:
//
//	req := testutil.NewRequestWithQueryParams(
//	    http.MethodGet,
//	    "/api/analytics/performance",
//	    map[string]string{"period": "7d", "userId": "alice"},
//	)
func NewRequestWithQueryParams(method, path string, queryParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)

	q := req.URL.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	req.URL.RawQuery = q.Encode()
	return req
}

// NewJSONRequest builds a request whose body is body encoded as JSON.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("Failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}
