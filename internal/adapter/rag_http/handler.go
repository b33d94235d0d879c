package rag_http

import (
	"context"
	"net/http"

	"doc-qa/internal/usecase"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DocumentIngester accepts a PDF on disk and indexes it. The worker pool
// implements it so uploads run with bounded concurrency.
type DocumentIngester interface {
	Submit(ctx context.Context, input usecase.IngestDocumentInput) (*usecase.IngestDocumentOutput, error)
}

// ReadinessCheck reports whether backing stores can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type HandlerConfig struct {
	UploadDir      string
	MaxUploadBytes int64
	DefaultK       int
	Ready          ReadinessCheck
	Spec           *openapi3.T
}

type Handler struct {
	ingester      DocumentIngester
	answerUsecase usecase.AnswerWithRAGUsecase
	cfg           HandlerConfig
}

func NewHandler(
	ingester DocumentIngester,
	answerUsecase usecase.AnswerWithRAGUsecase,
	cfg HandlerConfig,
) *Handler {
	if cfg.DefaultK == 0 {
		cfg.DefaultK = usecase.DefaultK
	}
	return &Handler{
		ingester:      ingester,
		answerUsecase: answerUsecase,
		cfg:           cfg,
	}
}

type IngestResponse struct {
	DocID  string `json:"doc_id"`
	Pages  int    `json:"pages"`
	Chunks int    `json:"chunks"`
}

type AskRequest struct {
	DocID    string `json:"doc_id" validate:"required"`
	Question string `json:"question" validate:"required,min=1,max=2000"`
	K        *int   `json:"k" validate:"omitempty,min=1,max=15"`
}

type CitationResponse struct {
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

type AskResponse struct {
	Answer     string             `json:"answer"`
	Citations  []CitationResponse `json:"citations"`
	UsedChunks int                `json:"used_chunks"`
}

// Register mounts every route. limit wraps the endpoints that reach upstream
// services.
func (h *Handler) Register(e *echo.Echo, limit ...echo.MiddlewareFunc) {
	if e.Validator == nil {
		e.Validator = NewRequestValidator()
	}

	e.POST("/ingest", h.Ingest, limit...)
	e.POST("/ask", h.Ask, append([]echo.MiddlewareFunc{middleware.BodyLimit("64K")}, limit...)...)

	e.GET("/health", h.Health)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", h.Readyz)
	e.GET("/openapi.json", h.OpenAPI)
}

// Ingest a PDF
// (POST /ingest)
func (h *Handler) Ingest(c echo.Context) error {
	path, err := saveUpload(c.Request(), h.cfg.UploadDir, h.cfg.MaxUploadBytes)
	if err != nil {
		return writeError(c, err)
	}
	defer removeUpload(path)

	out, err := h.ingester.Submit(c.Request().Context(), usecase.IngestDocumentInput{Path: path})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, IngestResponse{
		DocID:  out.DocumentID,
		Pages:  out.Pages,
		Chunks: out.Chunks,
	})
}

// Answer a question about one document
// (POST /ask)
func (h *Handler) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidRequest})
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	k := h.cfg.DefaultK
	if req.K != nil {
		k = *req.K
	}

	out, err := h.answerUsecase.Execute(c.Request().Context(), usecase.AnswerWithRAGInput{
		DocumentID: req.DocID,
		Question:   req.Question,
		K:          k,
	})
	if err != nil {
		return writeError(c, err)
	}

	citations := make([]CitationResponse, 0, len(out.Citations))
	for _, cite := range out.Citations {
		citations = append(citations, CitationResponse{Page: cite.Page, Snippet: cite.Snippet})
	}

	return c.JSON(http.StatusOK, AskResponse{
		Answer:     out.Answer,
		Citations:  citations,
		UsedChunks: out.UsedChunks,
	})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Readyz(c echo.Context) error {
	if h.cfg.Ready != nil {
		if err := h.cfg.Ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) OpenAPI(c echo.Context) error {
	if h.cfg.Spec == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "api description not loaded"})
	}
	return c.JSON(http.StatusOK, h.cfg.Spec)
}
