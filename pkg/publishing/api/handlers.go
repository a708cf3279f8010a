// Package api exposes the publishing service over HTTP: publish via
// multipart upload, purchase/grant/support writes, the partitioned catalog,
// the author projection, and the entitlement-gated content read.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

// maxUploadBytes caps multipart publish payloads.
const maxUploadBytes = 32 << 20

// Handler handles HTTP requests for the publishing service
type Handler struct {
	service publishing.Service
	logger  *slog.Logger
}

// NewHandler creates a new publishing handler
func NewHandler(service publishing.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the routes for the publishing service
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/catalog", h.BuildCatalog)
	r.Get("/authors", h.ListAuthors)
	r.Get("/articles/{id}/entitlement", h.Resolve)
	r.Get("/articles/{id}/content", h.ReadArticle)

	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Post("/articles", h.Publish)
		r.Post("/articles/{id}/purchase", h.Purchase)
		r.Post("/articles/{id}/grant", h.GrantAccess)
		r.Post("/authors/{address}/support", h.SupportAuthor)
	})

	return r
}

// Publish registers a new article from a multipart form: "file" carries the
// bytes, "title" and "price" the metadata. A "content_id" field resumes an
// orphaned upload instead of re-uploading.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var price int64
	if v := r.FormValue("price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}
		price = p
	}

	req := publishing.PublishRequest{
		Publisher: Identity(r.Context()),
		Title:     r.FormValue("title"),
		Price:     price,
		ContentID: r.FormValue("content_id"),
	}

	if req.ContentID == "" {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if req.Title == "" {
			req.Title = header.Filename
		}
		req.Content = file
	}

	result, err := h.service.Publish(r.Context(), req)
	if err != nil {
		h.renderError(w, r, "publish", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// Purchase unlocks a paid article for the authenticated viewer.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	var body struct {
		Price int64 `json:"price"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Purchase(r.Context(), publishing.PurchaseRequest{
		Buyer:     Identity(r.Context()),
		ArticleID: id,
		Price:     body.Price,
	})
	if err != nil {
		h.renderError(w, r, "purchase", err)
		return
	}
	render.JSON(w, r, result)
}

// GrantAccess lets the publisher unlock an article for another identity.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	var body struct {
		Grantee string `json:"grantee"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil || body.Grantee == "" {
		http.Error(w, "grantee is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.GrantAccess(r.Context(), publishing.GrantAccessRequest{
		Publisher: Identity(r.Context()),
		Grantee:   publishing.Identity(body.Grantee),
		ArticleID: id,
	})
	if err != nil {
		h.renderError(w, r, "grant", err)
		return
	}
	render.JSON(w, r, result)
}

// SupportAuthor sends a patronage payment to an author.
func (h *Handler) SupportAuthor(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "address")

	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.SupportAuthor(r.Context(), publishing.SupportAuthorRequest{
		Supporter: Identity(r.Context()),
		Author:    publishing.Identity(author),
		Amount:    body.Amount,
	})
	if err != nil {
		h.renderError(w, r, "support", err)
		return
	}
	render.JSON(w, r, result)
}

// BuildCatalog returns the viewer's partitioned catalog, optionally filtered
// by the "q" query parameter.
func (h *Handler) BuildCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.BuildCatalog(r.Context(), publishing.CatalogRequest{
		Viewer: Identity(r.Context()),
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		h.renderError(w, r, "catalog", err)
		return
	}
	render.JSON(w, r, catalog)
}

// ListAuthors returns the author projection.
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context())
	if err != nil {
		h.renderError(w, r, "authors", err)
		return
	}
	render.JSON(w, r, authors)
}

// Resolve reports the viewer's entitlement for one article.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	ent, err := h.service.Resolve(r.Context(), Identity(r.Context()), id)
	if err != nil {
		h.renderError(w, r, "resolve", err)
		return
	}
	render.JSON(w, r, map[string]string{"entitlement": string(ent)})
}

// ReadArticle streams article bytes to an unlocked viewer.
func (h *Handler) ReadArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	rc, err := h.service.ReadArticle(r.Context(), Identity(r.Context()), id)
	if err != nil {
		h.renderError(w, r, "read", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream article content",
			slog.Int("article_id", id),
			slog.String("error", err.Error()))
	}
}

func articleID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		http.Error(w, "invalid article id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// renderError maps service failures onto HTTP statuses. Typed workflow
// failures keep their taxonomy in the response body so callers can
// distinguish, say, a consistency fault from a plain write failure.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var status int
	var kind string

	var inputErr *publishing.InputError
	var uploadErr *publishing.UploadError
	var writeErr *publishing.WriteError
	var confirmErr *publishing.ConfirmationError
	var consistencyErr *publishing.ConsistencyError
	var readErr *publishing.ReadError
	var orphanErr *publishing.OrphanedContentError

	switch {
	case errors.Is(err, publishing.ErrArticleNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, publishing.ErrAccessDenied):
		status, kind = http.StatusForbidden, "access_denied"
	case errors.As(err, &inputErr):
		status, kind = http.StatusBadRequest, "input"
	case errors.As(err, &orphanErr):
		status, kind = http.StatusBadGateway, "orphaned_content"
		h.logger.Error("orphaned content",
			slog.String("op", op),
			slog.String("content_id", orphanErr.ContentID),
			slog.String("error", err.Error()))
		render.Status(r, status)
		render.JSON(w, r, map[string]string{
			"error":      err.Error(),
			"kind":       kind,
			"content_id": orphanErr.ContentID,
		})
		return
	case errors.As(err, &consistencyErr):
		status, kind = http.StatusConflict, "consistency"
	case errors.As(err, &confirmErr):
		status, kind = http.StatusBadGateway, "confirmation"
	case errors.As(err, &uploadErr):
		status, kind = http.StatusBadGateway, "upload"
	case errors.As(err, &writeErr):
		status, kind = http.StatusBadGateway, "write"
	case errors.As(err, &readErr):
		status, kind = http.StatusBadGateway, "read"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}

	h.logger.Error("request failed",
		slog.String("op", op),
		slog.String("kind", kind),
		slog.String("error", err.Error()))

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error(), "kind": kind})
}
