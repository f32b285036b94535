package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/concurrent"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/media"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/metrics"
)

// multipart overhead allowed on top of the summed file limits
const multipartSlack = 1 << 20

type UploadHandler struct {
	store  media.Store
	pool   *concurrent.WorkerPool
	auth   *middleware.Authenticator
	logger logger.Logger
}

func NewUploadHandler(store media.Store, pool *concurrent.WorkerPool, auth *middleware.Authenticator, logger logger.Logger) *UploadHandler {
	return &UploadHandler{
		store:  store,
		pool:   pool,
		auth:   auth,
		logger: logger,
	}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, ok := media.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		response.Fail(w, http.StatusNotFound, "Unknown upload type")
		return
	}
	limits := media.LimitsFor(kind)

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBytes*int64(limits.MaxFiles)+multipartSlack)
	if err := r.ParseMultipartForm(limits.MaxBytes); err != nil {
		metrics.RecordUpload(string(kind), "rejected")
		response.Fail(w, http.StatusBadRequest, "Invalid or oversized multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := append(r.MultipartForm.File["file"], r.MultipartForm.File["files"]...)
	if err := checkFiles(files, limits); err != nil {
		metrics.RecordUpload(string(kind), "rejected")
		response.Error(w, r, h.logger, err)
		return
	}

	stored, err := h.storeAll(r.Context(), kind, files)
	if err != nil {
		metrics.RecordUpload(string(kind), "failed")
		if errors.Is(err, concurrent.ErrQueueFull) || errors.Is(err, concurrent.ErrPoolStopped) {
			response.Fail(w, http.StatusServiceUnavailable, "Upload service busy, please retry")
			return
		}
		response.Error(w, r, h.logger, err)
		return
	}
	metrics.RecordUpload(string(kind), "success")

	h.logger.InfoContext(r.Context(), "Media uploaded", map[string]interface{}{
		"kind":    kind,
		"count":   len(stored),
		"user_id": middleware.UserID(r.Context()),
	})
	if kind == media.KindAvatar {
		response.Created(w, "File uploaded", stored[0])
		return
	}
	response.Created(w, "Files uploaded", stored)
}

// checkFiles enforces count, size and sniffed content type before anything
// reaches the media host.
func checkFiles(files []*multipart.FileHeader, limits media.Limits) error {
	if len(files) == 0 {
		return domain.NewValidationError("No file uploaded", domain.FieldError{Field: "file", Message: "is required"})
	}
	if len(files) > limits.MaxFiles {
		return domain.NewValidationError(fmt.Sprintf("At most %d files allowed", limits.MaxFiles),
			domain.FieldError{Field: "files", Message: fmt.Sprintf("must be at most %d", limits.MaxFiles)})
	}

	var fields []domain.FieldError
	for _, fh := range files {
		if fh.Size > limits.MaxBytes {
			fields = append(fields, domain.FieldError{
				Field:   fh.Filename,
				Message: fmt.Sprintf("exceeds %d MB", limits.MaxBytes>>20),
			})
			continue
		}
		mime, err := sniff(fh)
		if err != nil {
			return err
		}
		if !limits.Allows(mime) {
			fields = append(fields, domain.FieldError{
				Field:   fh.Filename,
				Message: "unsupported file type " + mime + "; allowed: " + strings.Join(limits.AllowedTypes, ", "),
			})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError("Invalid upload", fields...)
	}
	return nil
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect upload type: %w", err)
	}
	return mime.String(), nil
}

// storeAll uploads the files in parallel on the pool. When any upload fails,
// or the batch cannot be queued whole, the ones that succeeded are removed
// again.
func (h *UploadHandler) storeAll(ctx context.Context, kind media.Kind, files []*multipart.FileHeader) ([]*media.StoredMedia, error) {
	owner := middleware.UserID(ctx)
	stored := make([]*media.StoredMedia, len(files))
	jobs := make([]concurrent.Job, len(files))
	for i, fh := range files {
		i, fh := i, fh
		jobs[i] = func(ctx context.Context) error {
			f, err := fh.Open()
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()

			res, err := h.store.Store(ctx, f, kind, owner)
			if err != nil {
				return err
			}
			stored[i] = res
			return nil
		}
	}

	results, failed := h.pool.RunAll(ctx, "upload:"+string(kind), jobs)
	for _, err := range results {
		if failed == nil && err != nil {
			failed = err
		}
	}
	if failed == nil {
		return stored, nil
	}

	h.rollback(context.WithoutCancel(ctx), stored)
	return nil, failed
}

func (h *UploadHandler) rollback(ctx context.Context, stored []*media.StoredMedia) {
	for _, s := range stored {
		if s == nil {
			continue
		}
		if err := h.store.Delete(ctx, s.PublicID); err != nil {
			h.logger.WarnContext(ctx, "Failed to roll back upload", map[string]interface{}{
				"public_id": s.PublicID,
				"error":     err.Error(),
			})
		}
	}
}

func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	publicID := strings.TrimSpace(r.URL.Query().Get("publicId"))
	if publicID == "" {
		response.Error(w, r, h.logger, domain.NewValidationError("publicId is required",
			domain.FieldError{Field: "publicId", Message: "is required"}))
		return
	}
	if id, ok := middleware.IdentityFrom(r.Context()); !ok || (id.Role != domain.RoleAdmin && !media.OwnedBy(publicID, id.ID)) {
		response.Error(w, r, h.logger, domain.NewForbiddenError("You can only delete your own uploads"))
		return
	}

	if err := h.store.Delete(r.Context(), publicID); err != nil {
		if media.IsNotFound(err) {
			response.Fail(w, http.StatusNotFound, "File not found")
			return
		}
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "File deleted", nil)
}

func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Route("/upload", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)
		r.Post("/{kind}", h.Upload)
		r.Delete("/", h.Delete)
	})
}
