// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/qremote/internal/config"
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/kv"
	"github.com/autobrr/qremote/internal/metrics"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/notify"
	"github.com/autobrr/qremote/internal/scheduler"
	"github.com/autobrr/qremote/internal/services/notifier"
)

type routeKey struct {
	Method string
	Path   string
}

type nopPool struct{}

func (nopPool) Get(context.Context, models.ServerProfile) (domain.TorrentService, error) {
	return nil, fmt.Errorf("no daemon in tests")
}

func (nopPool) Remove(string) {}

func newTestDependencies(t *testing.T, cfg domain.Config) *Dependencies {
	t.Helper()

	store := kv.NewMemoryStore()
	settings := models.NewSettingsStore(store)
	mm := metrics.NewMetricsManager()
	svc := notifier.NewService(notifier.DefaultConfig(), settings, models.NewNotifierStateStore(store), nopPool{}, &notify.Recorder{}, notifier.TCPProbe{}, notifier.NewMetrics(mm.Registry()))

	return &Dependencies{
		Config:      &config.AppConfig{Config: &cfg},
		Version:     "test",
		Settings:    settings,
		Directories: models.NewDirectoriesStore(store),
		ClientPool:  nopPool{},
		Notifier:    svc,
		Scheduler:   scheduler.New(),
		Metrics:     mm,
	}
}

func TestAllEndpointsDocumented(t *testing.T) {
	server := NewServer(newTestDependencies(t, domain.Config{BaseURL: "/"}))
	router, err := server.Handler()
	require.NoError(t, err)

	actualRoutes := collectRouterRoutes(t, router)
	documentedRoutes := loadDocumentedRoutes(t)

	undocumented := diffRoutes(actualRoutes, documentedRoutes)
	if len(undocumented) > 0 {
		t.Fatalf("found %d undocumented API endpoints:\n%s", len(undocumented), formatRoutes(undocumented))
	}

	missingHandlers := diffRoutes(documentedRoutes, actualRoutes)
	if len(missingHandlers) > 0 {
		t.Fatalf("found %d documented endpoints without handlers:\n%s", len(missingHandlers), formatRoutes(missingHandlers))
	}

	t.Logf("checked %d API routes registered in chi", len(actualRoutes))
}

func TestHandler_TokenAuth(t *testing.T) {
	server := NewServer(newTestDependencies(t, domain.Config{BaseURL: "/", APIToken: "s3cret"}))
	router, err := server.Handler()
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   map[string]string
		wantCode int
	}{
		{name: "health is public", path: "/health", wantCode: http.StatusOK},
		{name: "openapi is public", path: "/api/openapi.yaml", wantCode: http.StatusOK},
		{name: "missing token", path: "/api/settings", wantCode: http.StatusUnauthorized},
		{name: "wrong token", path: "/api/settings", header: map[string]string{"X-API-Key": "nope"}, wantCode: http.StatusUnauthorized},
		{name: "api key header", path: "/api/settings", header: map[string]string{"X-API-Key": "s3cret"}, wantCode: http.StatusOK},
		{name: "bearer token", path: "/api/settings", header: map[string]string{"Authorization": "Bearer s3cret"}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_BaseURLAndMetrics(t *testing.T) {
	server := NewServer(newTestDependencies(t, domain.Config{BaseURL: "/qremote/", MetricsEnabled: true}))
	router, err := server.Handler()
	require.NoError(t, err)

	for path, want := range map[string]int{
		"/qremote/health":       http.StatusOK,
		"/qremote/api/settings": http.StatusOK,
		"/qremote/api/notifier": http.StatusOK,
		"/qremote/metrics":      http.StatusOK,
		"/api/settings":         http.StatusNotFound,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestHandler_NotifierRunWithoutServers(t *testing.T) {
	server := NewServer(newTestDependencies(t, domain.Config{BaseURL: "/"}))
	router, err := server.Handler()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/notifier/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"startedAt"`)
	assert.NotContains(t, rec.Body.String(), `"unreachable"`)
}

func collectRouterRoutes(t *testing.T, r chi.Routes) map[routeKey]struct{} {
	t.Helper()

	routes := make(map[routeKey]struct{})
	err := chi.Walk(r, func(method string, path string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		method = strings.ToUpper(method)
		if !isComparableMethod(method) {
			return nil
		}

		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			return nil
		}

		routes[routeKey{Method: method, Path: normalizedPath}] = struct{}{}
		return nil
	})
	require.NoError(t, err)

	return routes
}

func loadDocumentedRoutes(t *testing.T) map[routeKey]struct{} {
	t.Helper()

	specBytes := OpenAPISpec()
	require.NotEmpty(t, specBytes, "OpenAPI spec should be embedded")

	var spec map[string]any
	require.NoError(t, yaml.Unmarshal(specBytes, &spec))

	pathsNode, ok := spec["paths"].(map[string]any)
	require.True(t, ok, "OpenAPI spec missing paths section")

	routes := make(map[routeKey]struct{})

	for path, pathItem := range pathsNode {
		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			continue
		}

		methods, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for method := range methods {
			upperMethod := strings.ToUpper(method)
			if !isComparableMethod(upperMethod) {
				continue
			}

			routes[routeKey{Method: upperMethod, Path: normalizedPath}] = struct{}{}
		}
	}

	return routes
}

func normalizeRoutePath(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	if strings.Contains(path, "/*") {
		return "", false
	}

	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	if path == "/api/openapi.yaml" {
		return "", false
	}

	if !strings.HasPrefix(path, "/api") && !strings.HasPrefix(path, "/health") {
		return "", false
	}

	path = strings.ReplaceAll(path, "{serverID}", "{serverId}")
	path = strings.ReplaceAll(path, "{torrentID}", "{torrentId}")

	return path, true
}

func isComparableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func diffRoutes(left, right map[routeKey]struct{}) []routeKey {
	diff := make([]routeKey, 0)
	for route := range left {
		if _, exists := right[route]; !exists {
			diff = append(diff, route)
		}
	}

	sort.Slice(diff, func(i, j int) bool {
		if diff[i].Path == diff[j].Path {
			return diff[i].Method < diff[j].Method
		}
		return diff[i].Path < diff[j].Path
	})

	return diff
}

func formatRoutes(routes []routeKey) string {
	lines := make([]string, len(routes))
	for i, route := range routes {
		lines[i] = fmt.Sprintf("%s %s", route.Method, route.Path)
	}
	return strings.Join(lines, "\n")
}
