package workload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/kvbench/internal/proxy"
)

func TestProxyExecutorExistsNotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "key not found"})
	}))
	defer srv.Close()

	exec := ProxyExecutor{Client: proxy.New(srv.URL)}
	r := dispatch(context.Background(), exec, Operation{Kind: KindExists, Key: "k_0"})

	if r.Status != StatusError {
		t.Fatalf("status = %s, want error", r.Status)
	}
	if !strings.Contains(r.Error, "404") {
		t.Errorf("error = %q, want the HTTP status code embedded", r.Error)
	}
}

func TestProxyExecutorGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/redis/get" || r.URL.Query().Get("key") != "k_0" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"value": "hello"})
	}))
	defer srv.Close()

	exec := ProxyExecutor{Client: proxy.New(srv.URL)}
	r := dispatch(context.Background(), exec, Operation{Kind: KindGet, Key: "k_0"})

	if r.Status != StatusSuccess || r.Value != "hello" {
		t.Errorf("result = %+v, want success with value hello", r)
	}
}

func TestDirectExecutorUnsupportedKind(t *testing.T) {
	r := dispatch(context.Background(), DirectExecutor{}, Operation{Kind: Kind("flush"), Key: "k"})
	if r.Status != StatusError {
		t.Fatalf("status = %s, want error", r.Status)
	}
	if !strings.Contains(r.Error, "unsupported operation type") {
		t.Errorf("error = %q", r.Error)
	}
}
