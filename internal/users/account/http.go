// Copyright (c) 2026 XStream Media. All rights reserved.

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/xstreamhq/xstream/internal/platform/request"
	"github.com/xstreamhq/xstream/internal/platform/respond"
	"github.com/xstreamhq/xstream/internal/users/auth"
	"github.com/xstreamhq/xstream/pkg/pagination"
)

// Handler implements the account self-service HTTP endpoints.
//
// Password changes delegate to the auth service because credential handling
// lives there exclusively.
type Handler struct {
	accountService *Service
	authService    *auth.Service
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(service *Service, authService *auth.Service) *Handler {
	return &Handler{accountService: service, authService: authService}
}

// Routes returns the authenticated self-service routes.
//
// # Endpoints
//   - GET    /me                      : Own profile.
//   - PATCH  /me                      : Partial profile update.
//   - POST   /me/age-confirmation     : Pass the age gate.
//   - POST   /me/password             : Change password.
//   - GET    /me/favorites            : List bookmarked videos.
//   - PUT    /me/favorites/{videoID}  : Bookmark a video.
//   - DELETE /me/favorites/{videoID}  : Remove a bookmark.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/me", handler.getProfile)
	router.Patch("/me", handler.updateProfile)
	router.Post("/me/age-confirmation", handler.confirmAge)
	router.Post("/me/password", handler.changePassword)
	router.Get("/me/favorites", handler.listFavorites)
	router.Put("/me/favorites/{videoID}", handler.addFavorite)
	router.Delete("/me/favorites/{videoID}", handler.removeFavorite)

	return router
}

// AdminRoutes returns the admin-only user management routes.
//
// # Endpoints
//   - GET    /      : Paginated account listing.
//   - DELETE /{id}  : Soft-delete an account.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.adminListUsers)
	router.Delete("/{id}", handler.adminDeleteUser)

	return router
}

// getProfile handles GET /api/v1/account/me.
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// updateProfileRequest is the PATCH payload. Absent fields stay unchanged.
type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// updateProfile handles PATCH /api/v1/account/me.
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		DisplayName: input.DisplayName,
		AvatarURL:   input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// confirmAge handles POST /api/v1/account/me/age-confirmation.
func (handler *Handler) confirmAge(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.ConfirmAge(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// changePassword handles POST /api/v1/account/me/password.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(
		request.Context(), userID, input.CurrentPassword, input.NewPassword,
	); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// listFavorites handles GET /api/v1/account/me/favorites.
func (handler *Handler) listFavorites(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	favorites, total, err := handler.accountService.ListFavorites(
		request.Context(), userID, params.Limit, params.Offset(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, favorites, pagination.NewMeta(params.Page, params.Limit, total))
}

// addFavorite handles PUT /api/v1/account/me/favorites/{videoID}.
func (handler *Handler) addFavorite(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	videoID := requestutil.Param(request, "videoID")
	if err := handler.accountService.AddFavorite(request.Context(), userID, videoID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// removeFavorite handles DELETE /api/v1/account/me/favorites/{videoID}.
func (handler *Handler) removeFavorite(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	videoID := requestutil.Param(request, "videoID")
	if err := handler.accountService.RemoveFavorite(request.Context(), userID, videoID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// adminListUsers handles GET /api/v1/admin/users.
func (handler *Handler) adminListUsers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	users, total, err := handler.accountService.ListUsers(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, total))
}

// adminDeleteUser handles DELETE /api/v1/admin/users/{id}.
func (handler *Handler) adminDeleteUser(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")
	if err := handler.accountService.DeleteUser(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
