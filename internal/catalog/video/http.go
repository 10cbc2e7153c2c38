// Copyright (c) 2026 XStream Media. All rights reserved.

package video

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xstreamhq/xstream/internal/platform/sec"

	requestutil "github.com/xstreamhq/xstream/internal/platform/request"
	"github.com/xstreamhq/xstream/internal/platform/respond"
	"github.com/xstreamhq/xstream/pkg/pagination"
	"github.com/xstreamhq/xstream/pkg/query"
)

// Handler implements the catalog HTTP endpoints.
type Handler struct {
	videoService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{videoService: service}
}

// Routes returns the public catalog routes.
//
// # Endpoints
//   - GET  /                     : Filtered, sorted catalog listing.
//   - GET  /categories           : Distinct category list.
//   - GET  /{idOrSlug}           : Single video by UUID or slug.
//   - POST /{id}/views           : Debounced view count.
//   - POST /{id}/likes           : Like.
//   - DELETE /{id}/likes         : Unlike.
//   - GET  /{id}/comments        : Threaded comment section.
//   - POST /{id}/comments        : Post a comment or reply (auth).
//   - DELETE /comments/{commentID} : Delete own comment (auth).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/categories", handler.listCategories)
	router.Get("/{idOrSlug}", handler.get)
	router.Post("/{id}/views", handler.countView)
	router.Post("/{id}/likes", handler.like)
	router.Delete("/{id}/likes", handler.unlike)
	router.Get("/{id}/comments", handler.listComments)
	router.Post("/{id}/comments", handler.addComment)
	router.Delete("/comments/{commentID}", handler.deleteComment)

	return router
}

// AdminRoutes returns the curation routes (admin only).
//
// # Endpoints
//   - POST   /      : Publish a new video.
//   - PATCH  /{id}  : Partial metadata update.
//   - DELETE /{id}  : Unpublish (soft delete).
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.adminCreate)
	router.Patch("/{id}", handler.adminUpdate)
	router.Delete("/{id}", handler.adminDelete)

	return router
}

// list handles GET /api/v1/videos.
//
// # Query Parameters
//   - q         : Free-text title search.
//   - category  : Exact category match.
//   - exclusive : true/false; absent means both.
//   - sort      : latest (default), popular, toprated.
//   - page/limit: Standard pagination.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	values := request.URL.Query()

	filter := Filter{
		Query:     values.Get("q"),
		Category:  values.Get("category"),
		Exclusive: query.Bool(values.Get("exclusive")),
		Sort:      values.Get("sort"),
	}

	videos, total, err := handler.videoService.ListVideos(request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, videos, pagination.NewMeta(params.Page, params.Limit, total))
}

// listCategories handles GET /api/v1/videos/categories.
func (handler *Handler) listCategories(writer http.ResponseWriter, request *http.Request) {
	categories, err := handler.videoService.ListCategories(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, categories)
}

// get handles GET /api/v1/videos/{idOrSlug}.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	video, err := handler.videoService.GetVideo(request.Context(), requestutil.Param(request, "idOrSlug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, video)
}

// countView handles POST /api/v1/videos/{id}/views.
//
// Anonymous viewers are keyed by IP; authenticated viewers by user ID so that
// the debounce follows the account across devices.
func (handler *Handler) countView(writer http.ResponseWriter, request *http.Request) {
	viewerKey := clientKey(request)

	if err := handler.videoService.CountView(request.Context(), requestutil.Param(request, "id"), viewerKey); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// like handles POST /api/v1/videos/{id}/likes.
func (handler *Handler) like(writer http.ResponseWriter, request *http.Request) {
	if err := handler.videoService.Like(request.Context(), requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// unlike handles DELETE /api/v1/videos/{id}/likes.
func (handler *Handler) unlike(writer http.ResponseWriter, request *http.Request) {
	if err := handler.videoService.Unlike(request.Context(), requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// listComments handles GET /api/v1/videos/{id}/comments.
func (handler *Handler) listComments(writer http.ResponseWriter, request *http.Request) {
	comments, err := handler.videoService.ListComments(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, comments)
}

// addCommentRequest is the payload for posting a comment or reply.
type addCommentRequest struct {
	Body     string  `json:"body"`
	ParentID *string `json:"parent_id"`
}

// addComment handles POST /api/v1/videos/{id}/comments.
func (handler *Handler) addComment(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input addCommentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	comment, err := handler.videoService.AddComment(
		request.Context(), requestutil.Param(request, "id"), userID, input.Body, input.ParentID,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, comment)
}

// deleteComment handles DELETE /api/v1/videos/comments/{commentID}.
func (handler *Handler) deleteComment(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.videoService.DeleteComment(
		request.Context(), requestutil.Param(request, "commentID"),
		claims.UserID, sec.UserRole(claims.Role),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// adminCreateRequest is the payload for publishing a new video.
type adminCreateRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	EmbedURL     string `json:"embed_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Category     string `json:"category"`
	Exclusive    bool   `json:"exclusive"`
}

// adminCreate handles POST /api/v1/admin/videos.
func (handler *Handler) adminCreate(writer http.ResponseWriter, request *http.Request) {
	var input adminCreateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	video, err := handler.videoService.CreateVideo(request.Context(), CreateInput{
		Title:        input.Title,
		Description:  input.Description,
		EmbedURL:     input.EmbedURL,
		ThumbnailURL: input.ThumbnailURL,
		Category:     input.Category,
		Exclusive:    input.Exclusive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, video)
}

// adminUpdateRequest is the PATCH payload. Absent fields stay unchanged.
type adminUpdateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	EmbedURL     *string `json:"embed_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Category     *string `json:"category"`
	Exclusive    *bool   `json:"exclusive"`
}

// adminUpdate handles PATCH /api/v1/admin/videos/{id}.
func (handler *Handler) adminUpdate(writer http.ResponseWriter, request *http.Request) {
	var input adminUpdateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	video, err := handler.videoService.UpdateVideo(request.Context(), requestutil.Param(request, "id"), UpdateInput{
		Title:        input.Title,
		Description:  input.Description,
		EmbedURL:     input.EmbedURL,
		ThumbnailURL: input.ThumbnailURL,
		Category:     input.Category,
		Exclusive:    input.Exclusive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, video)
}

// adminDelete handles DELETE /api/v1/admin/videos/{id}.
func (handler *Handler) adminDelete(writer http.ResponseWriter, request *http.Request) {
	if err := handler.videoService.DeleteVideo(request.Context(), requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// clientKey identifies the viewer for view debouncing: user ID when
// authenticated, client IP otherwise.
func clientKey(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
