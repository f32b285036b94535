package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

type PostHandler struct {
	service domain.PostService
	auth    *middleware.Authenticator
	logger  logger.Logger
}

func NewPostHandler(service domain.PostService, auth *middleware.Authenticator, logger logger.Logger) *PostHandler {
	return &PostHandler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

type createPostRequest struct {
	Content    string   `json:"content"`
	MediaURLs  []string `json:"mediaUrls"`
	MediaType  string   `json:"mediaType" validate:"omitempty,oneof=NONE IMAGE VIDEO MIXED"`
	Visibility string   `json:"visibility" validate:"omitempty,oneof=PUBLIC FOLLOWERS PRIVATE"`
	Status     string   `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	ProductID  *string  `json:"productId"`
}

type updatePostRequest struct {
	Content      *string   `json:"content"`
	MediaURLs    *[]string `json:"mediaUrls"`
	MediaType    *string   `json:"mediaType" validate:"omitempty,oneof=NONE IMAGE VIDEO MIXED"`
	Visibility   *string   `json:"visibility" validate:"omitempty,oneof=PUBLIC FOLLOWERS PRIVATE"`
	Status       *string   `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	ProductID    *string   `json:"productId"`
	ClearProduct bool      `json:"clearProduct"`
}

type addCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
}

func (h *PostHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.GetPosts(r.Context(), domain.PostFilter{
		PageRequest: pageFromQuery(r),
		AuthorID:    q.Get("authorId"),
		ProductID:   q.Get("productId"),
		Visibility:  domain.Visibility(strings.ToUpper(q.Get("visibility"))),
		Status:      domain.PostStatus(strings.ToUpper(q.Get("status"))),
		Search:      q.Get("search"),
		ViewerID:    middleware.UserID(r.Context()),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", page)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPostByID(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), middleware.UserID(r.Context()), domain.PostInput{
		Content:    req.Content,
		MediaURLs:  req.MediaURLs,
		MediaType:  domain.MediaType(req.MediaType),
		Visibility: domain.Visibility(req.Visibility),
		Status:     domain.PostStatus(req.Status),
		ProductID:  req.ProductID,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.Created(w, "Post created", post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	patch := domain.PostPatch{
		Content:      req.Content,
		MediaURLs:    req.MediaURLs,
		ProductID:    req.ProductID,
		ClearProduct: req.ClearProduct,
	}
	if req.MediaType != nil {
		mt := domain.MediaType(*req.MediaType)
		patch.MediaType = &mt
	}
	if req.Visibility != nil {
		v := domain.Visibility(*req.Visibility)
		patch.Visibility = &v
	}
	if req.Status != nil {
		st := domain.PostStatus(*req.Status)
		patch.Status = &st
	}

	post, err := h.service.UpdatePost(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()), patch)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Post updated", post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePost(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Post deleted", nil)
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	message := "Post unliked"
	if result.Liked {
		message = "Post liked"
	}
	response.OK(w, message, result)
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	comment, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()), req.Content, req.ParentID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.Created(w, "Comment added", comment)
}

func (h *PostHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetComments(r.Context(), chi.URLParam(r, "id"), pageFromQuery(r))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", page)
}

func (h *PostHandler) GetReplies(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetReplies(r.Context(), chi.URLParam(r, "id"), pageFromQuery(r))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", page)
}

func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteComment(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Comment deleted", nil)
}

func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.With(h.auth.OptionalAuth).Get("/", h.GetPosts)
		r.With(h.auth.OptionalAuth).Get("/{id}", h.GetPost)
		r.Get("/{id}/comments", h.GetComments)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireAuth)
			r.Post("/", h.CreatePost)
			r.Put("/{id}", h.UpdatePost)
			r.Delete("/{id}", h.DeletePost)
			r.Post("/{id}/like", h.ToggleLike)
			r.Post("/{id}/comments", h.AddComment)
		})
	})

	r.Route("/comments", func(r chi.Router) {
		r.Get("/{id}/replies", h.GetReplies)
		r.With(h.auth.RequireAuth).Delete("/{id}", h.DeleteComment)
	})
}
