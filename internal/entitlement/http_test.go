// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xstreamhq/xstream/internal/platform/apperr"
	"github.com/xstreamhq/xstream/internal/platform/ctxutil"
	"github.com/xstreamhq/xstream/internal/platform/sec"
)

// fakeVideoLookup answers exclusivity for a fixed set of video IDs.
type fakeVideoLookup struct {
	exclusive map[string]bool
}

func (lookup *fakeVideoLookup) IsExclusive(_ context.Context, idOrSlug string) (bool, error) {
	isExclusive, ok := lookup.exclusive[idOrSlug]
	if !ok {
		return false, apperr.NotFound("Video")
	}
	return isExclusive, nil
}

// accessRequest builds a gate request for one video, optionally authenticated.
func accessRequest(videoID, userID string) *http.Request {
	request := httptest.NewRequest("GET", "/api/v1/videos/"+videoID+"/access", nil)

	routeContext := chi.NewRouteContext()
	routeContext.URLParams.Add("id", videoID)
	ctx := context.WithValue(request.Context(), chi.RouteCtxKey, routeContext)

	if userID != "" {
		ctx = ctxutil.WithAuthUser(ctx, &sec.AuthClaims{UserID: userID, Username: "viewer"})
	}
	return request.WithContext(ctx)
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Code
}

func TestVideoAccess_DecisionTable(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := grantedStore(clock, 3*time.Hour, 24*time.Hour)
	manager := newTestManager(store)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	handler := NewHandler(manager, store, &fakeVideoLookup{exclusive: map[string]bool{
		"free-1":      false,
		"exclusive-1": true,
	}})

	t.Run("free_video_anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.VideoAccess(recorder, accessRequest("free-1", ""))

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("exclusive_anonymous_denied", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.VideoAccess(recorder, accessRequest("exclusive-1", ""))

		assert.Equal(t, http.StatusPaymentRequired, recorder.Code)
		assert.Equal(t, string(DenyNoEntitlement), decodeError(t, recorder))
	})

	t.Run("exclusive_granted_allowed", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.VideoAccess(recorder, accessRequest("exclusive-1", "viewer-1"))

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("exclusive_without_grant_denied", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.VideoAccess(recorder, accessRequest("exclusive-1", "viewer-2"))

		assert.Equal(t, http.StatusPaymentRequired, recorder.Code)
		assert.Equal(t, string(DenyNoEntitlement), decodeError(t, recorder))
	})

	t.Run("unknown_video_fails_closed", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.VideoAccess(recorder, accessRequest("missing", "viewer-1"))

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestVideoAccess_ExpiredWindowDenied(t *testing.T) {
	clock := &fakeClock{now: time.Now()}

	// Balance remains but the validity window closed an hour ago.
	store := newMemoryStore()
	expiry := clock.Now().Add(-time.Hour)
	store.put(&Record{
		UserID:            "viewer-1",
		RemainingUsableMs: time.Hour.Milliseconds(),
		ValidityExpiry:    &expiry,
	})
	manager := newTestManager(store)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	handler := NewHandler(manager, store, &fakeVideoLookup{exclusive: map[string]bool{
		"exclusive-1": true,
	}})

	recorder := httptest.NewRecorder()
	handler.VideoAccess(recorder, accessRequest("exclusive-1", "viewer-1"))

	assert.Equal(t, http.StatusPaymentRequired, recorder.Code)
	assert.Equal(t, string(DenyValidityExpired), decodeError(t, recorder))
}
