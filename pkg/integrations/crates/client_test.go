package crates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/wsbump/pkg/cache"
	"github.com/matzehuels/wsbump/pkg/integrations"
)

func TestNewClient(t *testing.T) {
	c := NewClient(cache.NewNullCache(), time.Hour)
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %s", c.baseURL)
	}
}

func TestClient_FetchCrate(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/crates/serde" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var resp crateResponse
		resp.Crate.Name = "serde"
		resp.Crate.MaxVersion = "1.1.0-alpha.1"
		resp.Crate.MaxStableVersion = "1.0.0"
		resp.Crate.Repository = "https://github.com/serde-rs/serde"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClientWithBaseURL(nil, time.Hour, server.URL)

	info, err := c.FetchCrate(context.Background(), "serde", true)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}
	if info.Name != "serde" {
		t.Errorf("expected name serde, got %s", info.Name)
	}
	if info.MaxVersion != "1.1.0-alpha.1" {
		t.Errorf("expected max_version 1.1.0-alpha.1, got %s", info.MaxVersion)
	}
	if info.MaxStableVersion != "1.0.0" {
		t.Errorf("expected max_stable_version 1.0.0, got %s", info.MaxStableVersion)
	}
	if userAgent != UserAgent {
		t.Errorf("User-Agent = %q", userAgent)
	}
}

func TestClient_FetchCrate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClientWithBaseURL(nil, time.Hour, server.URL)

	_, err := c.FetchCrate(context.Background(), "nonexistent", true)
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_FetchCrate_Cached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var resp crateResponse
		resp.Crate.Name = "anyhow"
		resp.Crate.MaxVersion = "1.0.86"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClientWithBaseURL(backend, time.Hour, server.URL)

	for range 3 {
		info, err := c.FetchCrate(context.Background(), "anyhow", false)
		if err != nil {
			t.Fatal(err)
		}
		if info.MaxVersion != "1.0.86" {
			t.Errorf("MaxVersion = %s", info.MaxVersion)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("registry hit %d times, want 1", hits.Load())
	}
}

func TestClient_FetchCrate_MissingVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"crate":{"name":"empty"}}`))
	}))
	defer server.Close()

	c := NewClientWithBaseURL(nil, time.Hour, server.URL)
	if _, err := c.FetchCrate(context.Background(), "empty", true); err == nil {
		t.Error("expected error for response without max_version")
	}
}
