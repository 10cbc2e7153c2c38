// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xstreamhq/xstream/internal/platform/apperr"
	requestutil "github.com/xstreamhq/xstream/internal/platform/request"
	"github.com/xstreamhq/xstream/internal/platform/respond"
	"github.com/xstreamhq/xstream/internal/platform/validate"
)

// VideoLookup answers whether a catalog entry is premium. The catalog service
// satisfies this.
type VideoLookup interface {
	IsExclusive(ctx context.Context, idOrSlug string) (bool, error)
}

// Handler implements the entitlement HTTP endpoints.
type Handler struct {
	manager *Manager
	store   Store
	videos  VideoLookup
}

// NewHandler constructs a new [Handler].
func NewHandler(manager *Manager, store Store, videos VideoLookup) *Handler {
	return &Handler{manager: manager, store: store, videos: videos}
}

// Routes returns the authenticated entitlement routes.
//
// The websocket countdown feed ([Handler.Live]) is registered separately in
// server.go, outside the request-timeout group.
//
// # Endpoints
//   - GET  /         : Current entitlement snapshot.
//   - POST /signals  : Activity signals (activate/deactivate).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.getSnapshot)
	router.Post("/signals", handler.postSignal)

	return router
}

// getSnapshot handles GET /api/v1/entitlement.
//
// A live engine answers with its in-memory view (including unflushed
// countdown progress); otherwise the stored record is evaluated directly.
func (handler *Handler) getSnapshot(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if engine := handler.manager.Peek(userID); engine != nil {
		snapshot, err := engine.CurrentSnapshot(request.Context())
		if err != nil {
			respond.Error(writer, request, apperr.Internal(err))
			return
		}
		respond.OK(writer, snapshot)
		return
	}

	record, err := handler.store.Find(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, SnapshotOf(record, record.Running, nowUTC()))
}

// signalRequest is the payload for activity signals.
type signalRequest struct {
	Signal string `json:"signal"`
}

// postSignal handles POST /api/v1/entitlement/signals.
//
// Signals report activity transitions: enter/leave for the viewing context,
// visible/hidden for page visibility. The countdown runs only while both
// conditions hold.
//
// # Responses
//   - 200 with a snapshot when the signal is accepted.
//   - 402 with a deny code when a would-activate signal is refused by the gate.
func (handler *Handler) postSignal(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input signalRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	valid := (&validate.Validator{}).OneOf("signal", input.Signal,
		SignalEnter, SignalLeave, SignalVisible, SignalHidden)
	if err := valid.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := handler.manager.Signal(request.Context(), userID, input.Signal)
	if err != nil {
		if errors.Is(err, ErrShuttingDown) {
			respond.Error(writer, request, apperr.ServiceUnavailable("Shutting down"))
			return
		}
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	activating := input.Signal == SignalEnter || input.Signal == SignalVisible
	if activating && !snapshot.Allowed {
		respond.Error(writer, request, denyError(snapshot.DenyReason))
		return
	}

	respond.OK(writer, snapshot)
}

// VideoAccess handles GET /api/v1/videos/{id}/access: the access gate for one
// catalog entry. The route is public so players can probe before sign-in.
//
// # Decision Table
//   - Free video            : always allowed, signed in or not.
//   - Exclusive, anonymous  : 402; the client routes to sign-in.
//   - Exclusive, gate passes: allowed.
//   - Exclusive, gate denies: 402 with the deny code.
//   - Lookup failure        : denied (fail closed).
func (handler *Handler) VideoAccess(writer http.ResponseWriter, request *http.Request) {
	exclusive, err := handler.videos.IsExclusive(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		// Fail closed: an unknown video never plays.
		respond.Error(writer, request, err)
		return
	}

	if !exclusive {
		respond.OK(writer, Decision{Allowed: true})
		return
	}

	claims := requestutil.Claims(request)
	if claims == nil {
		respond.Error(writer, request, denyError(DenyNoEntitlement))
		return
	}

	decision, err := handler.evaluate(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !decision.Allowed {
		respond.Error(writer, request, denyError(decision.Reason))
		return
	}

	respond.OK(writer, decision)
}

// evaluate runs the gate against the freshest available state.
func (handler *Handler) evaluate(ctx context.Context, userID string) (Decision, error) {
	if engine := handler.manager.Peek(userID); engine != nil {
		snapshot, err := engine.CurrentSnapshot(ctx)
		if err != nil {
			return Decision{}, apperr.Internal(err)
		}
		return Decision{Allowed: snapshot.Allowed, Reason: snapshot.DenyReason}, nil
	}

	record, err := handler.store.Find(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(record, nowUTC()), nil
}

// denyError maps a gate denial onto the 402 error taxonomy.
func denyError(reason DenyReason) error {
	switch reason {
	case DenyTimeExhausted:
		return apperr.PaymentRequired(string(reason), "Your usable time is exhausted. Top up to continue watching.")
	case DenyValidityExpired:
		return apperr.PaymentRequired(string(reason), "Your access window has expired. Top up to continue watching.")
	default:
		return apperr.PaymentRequired(string(DenyNoEntitlement), "Exclusive content requires an active top-up.")
	}
}
