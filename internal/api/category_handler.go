package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

type CategoryHandler struct {
	service domain.CategoryService
	auth    *middleware.Authenticator
	logger  logger.Logger
}

func NewCategoryHandler(service domain.CategoryService, auth *middleware.Authenticator, logger logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

type createCategoryRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Description  string  `json:"description" validate:"max=1000"`
	ImageURL     string  `json:"imageUrl" validate:"omitempty,url"`
	ParentID     *string `json:"parentId"`
	DisplayOrder int     `json:"displayOrder" validate:"min=0"`
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.GetCategories(r.Context())
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", categories)
}

func (h *CategoryHandler) GetRootCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.GetRootCategories(r.Context())
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", categories)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", category)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), domain.CategoryInput{
		Name:         req.Name,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.Created(w, "Category created", category)
}

func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.GetCategories)
		r.Get("/root", h.GetRootCategories)
		r.Get("/{identifier}", h.GetCategory)
		r.With(h.auth.RequireAuth, middleware.RequireRole(domain.RoleAdmin)).Post("/", h.CreateCategory)
	})
}
