// Package handler exposes the symbol endpoints over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricewatch/internal/metrics"
	"pricewatch/internal/model"
	"pricewatch/internal/symbolview"
)

const (
	_symbolParam    = "symbol"
	_tokenKey       = "token"
	RequestIDHeader = "X-Request-Id"
)

// Views is implemented by *symbolview.Service.
type Views interface {
	GetSymbolView(ctx context.Context, token, symbol string) (model.SymbolView, error)
	RegisterSymbol(ctx context.Context, token, symbol string) (model.SymbolView, error)
}

type Handler struct {
	views    Views
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	timeout  time.Duration
	log      *slog.Logger
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = m
		h.gatherer = g
	}
}

func WithRequestTimeout(d time.Duration) Option { return func(h *Handler) { h.timeout = d } }

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func New(views Views, opts ...Option) *Handler {
	h := &Handler{
		views:   views,
		timeout: 15 * time.Second,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// InitRoutes builds the gin engine.
func (h *Handler) InitRoutes() *gin.Engine {
	r := gin.New()
	r.Use(h.requestToken, h.accessLog, gin.CustomRecovery(h.recovered))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if h.gatherer != nil {
		// promhttp negotiates its own compression
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	// inner recovery writes panic bodies through the gzip writer
	v1 := r.Group("/api/v1", withJSONHeaders, withGzip(), gin.CustomRecovery(h.recovered))
	v1.GET("/symbol/:"+_symbolParam, h.GetSymbol)
	v1.PUT("/symbol/:"+_symbolParam, h.PutSymbol)
	v1.OPTIONS("/symbol/:"+_symbolParam, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "Route not found")
	})
	return r
}

// GetSymbol serves GET /api/v1/symbol/:symbol.
func (h *Handler) GetSymbol(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	view, err := h.views.GetSymbolView(ctx, token(c), c.Param(_symbolParam))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PutSymbol serves PUT /api/v1/symbol/:symbol.
func (h *Handler) PutSymbol(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	view, err := h.views.RegisterSymbol(ctx, token(c), c.Param(_symbolParam))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{Message: msg, Token: token(c)}})
}

func (h *Handler) fail(c *gin.Context, err error) {
	var ve *symbolview.Error
	if !errors.As(err, &ve) {
		h.log.Error("request failed", "token", token(c), "path", c.Request.URL.Path, "err", err)
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	switch ve.Kind {
	case symbolview.KindValidation:
		writeError(c, http.StatusBadRequest, ve.Message)
	case symbolview.KindNotFound:
		writeError(c, http.StatusNotFound, ve.Message)
	case symbolview.KindAlreadyExists:
		writeError(c, http.StatusConflict, ve.Message)
	default:
		writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) recovered(c *gin.Context, rec any) {
	h.log.Error("panic recovered", "token", token(c), "path", c.Request.URL.Path, "panic", rec)
	writeError(c, http.StatusInternalServerError, "Internal server error")
}
