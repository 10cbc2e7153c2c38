// Copyright (c) 2026 XStream Media. All rights reserved.

package receipt

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/xstreamhq/xstream/internal/platform/request"
	"github.com/xstreamhq/xstream/internal/platform/respond"
	"github.com/xstreamhq/xstream/pkg/pagination"
)

// Handler implements the top-up HTTP endpoints.
type Handler struct {
	receiptService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{receiptService: service}
}

// Routes returns the authenticated viewer routes.
//
// # Endpoints
//   - GET    /pricing      : Published price tiers.
//   - POST   /             : Submit a payment receipt.
//   - GET    /             : Own submission history.
//   - POST   /{id}/cancel  : Withdraw a pending submission.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/pricing", handler.pricing)
	router.Post("/", handler.submit)
	router.Get("/", handler.listMine)
	router.Post("/{id}/cancel", handler.cancel)

	return router
}

// AdminRoutes returns the review console routes (admin only).
//
// # Endpoints
//   - GET    /               : All receipts, filterable by status and user.
//   - POST   /{id}/approve   : Approve and grant access.
//   - POST   /{id}/reject    : Reject with mandatory remarks.
//   - POST   /{id}/cancel    : Withdraw on the submitter's behalf.
//   - DELETE /{id}           : Remove from the audit trail.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.adminList)
	router.Post("/{id}/approve", handler.adminApprove)
	router.Post("/{id}/reject", handler.adminReject)
	router.Post("/{id}/cancel", handler.adminCancel)
	router.Delete("/{id}", handler.adminDelete)

	return router
}

// pricing handles GET /api/v1/receipts/pricing.
func (handler *Handler) pricing(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.receiptService.PriceTiers())
}

// submitRequest is the payload for a new receipt.
type submitRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	ProofURL  string `json:"proof_url"`
}

// submit handles POST /api/v1/receipts.
func (handler *Handler) submit(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input submitRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.receiptService.Submit(request.Context(), userID, SubmitInput{
		Amount:    input.Amount,
		Reference: input.Reference,
		ProofURL:  input.ProofURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, receipt)
}

// listMine handles GET /api/v1/receipts.
func (handler *Handler) listMine(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	receipts, total, err := handler.receiptService.ListMine(request.Context(), userID, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, receipts, pagination.NewMeta(params.Page, params.Limit, total))
}

// cancel handles POST /api/v1/receipts/{id}/cancel.
func (handler *Handler) cancel(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.receiptService.Cancel(request.Context(), requestutil.Param(request, "id"), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, receipt)
}

// adminList handles GET /api/v1/admin/receipts.
func (handler *Handler) adminList(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	filter := ListFilter{
		Status: Status(request.URL.Query().Get("status")),
		UserID: request.URL.Query().Get("user"),
	}

	receipts, total, err := handler.receiptService.ListAll(request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, receipts, pagination.NewMeta(params.Page, params.Limit, total))
}

// adminApprove handles POST /api/v1/admin/receipts/{id}/approve.
func (handler *Handler) adminApprove(writer http.ResponseWriter, request *http.Request) {
	reviewerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.receiptService.Approve(request.Context(), requestutil.Param(request, "id"), reviewerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, receipt)
}

// adminRejectRequest is the payload for a rejection.
type adminRejectRequest struct {
	Remarks string `json:"remarks"`
}

// adminReject handles POST /api/v1/admin/receipts/{id}/reject.
func (handler *Handler) adminReject(writer http.ResponseWriter, request *http.Request) {
	reviewerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input adminRejectRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.receiptService.Reject(
		request.Context(), requestutil.Param(request, "id"), reviewerID, input.Remarks,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, receipt)
}

// adminCancel handles POST /api/v1/admin/receipts/{id}/cancel.
func (handler *Handler) adminCancel(writer http.ResponseWriter, request *http.Request) {
	reviewerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input adminRejectRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.receiptService.CancelByReviewer(
		request.Context(), requestutil.Param(request, "id"), reviewerID, input.Remarks,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, receipt)
}

// adminDelete handles DELETE /api/v1/admin/receipts/{id}.
func (handler *Handler) adminDelete(writer http.ResponseWriter, request *http.Request) {
	if err := handler.receiptService.Delete(request.Context(), requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
