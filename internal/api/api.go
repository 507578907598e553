package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sliink/liveplot/internal/api/docs"
	"github.com/sliink/liveplot/internal/argparse"
	"github.com/sliink/liveplot/internal/core"
	"github.com/sliink/liveplot/internal/extract"
	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
	"github.com/sliink/liveplot/internal/surface"
)

const drawTimeout = 10 * time.Second

// PlotRequest carries the argument tokens of a draw or bind call
type PlotRequest struct {
	Args []string `json:"args" binding:"required" example:"--list,la,--width,640"`
}

// BindResponse is returned when a render target is accepted
type BindResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// API represents the REST API of the plotting server
type API struct {
	core   *core.Core
	board  *surface.FrameBoard
	router *gin.Engine
	server *http.Server
	port   int
	host   string
	logger *slog.Logger
}

// NewAPI creates a new API instance
// @title           liveplot API
// @version         1.0
// @description     Draw plots from stored lists and keep live plots bound to them.

// @BasePath  /
func NewAPI(c *core.Core, board *surface.FrameBoard, host string, port int) *API {
	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%d", host, port)

	router := gin.New()
	a := &API{
		core:   c,
		board:  board,
		router: router,
		port:   port,
		host:   host,
		logger: slog.Default().With("component", "api"),
	}
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	router.Use(gin.Recovery(), a.requestLogger())
	a.setupRoutes()
	return a
}

// setupRoutes configures all the API routes
func (a *API) setupRoutes() {
	a.router.GET("/health", a.healthCheck)
	a.router.GET("/status", a.getStatus)
	a.router.GET("/config", a.getConfig)

	a.router.POST("/draw", a.draw)
	a.router.POST("/bind", a.bind)

	targets := a.router.Group("/targets")
	{
		targets.GET("", a.getTargets)
		targets.GET("/:id", a.getTarget)
		targets.DELETE("/:id", a.closeTarget)
		targets.GET("/:id/frame.png", a.getFrame)
	}

	a.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		a.core.GetHealthMonitor().Gatherer(),
		promhttp.HandlerOpts{},
	)))
	a.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler returns the HTTP handler serving the API
func (a *API) Handler() http.Handler {
	return a.router
}

// Start serves the API until Stop is called
func (a *API) Start() error {
	a.logger.Info("api listening", "addr", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, argparse.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, core.ErrUnknownTarget):
		return http.StatusNotFound
	case errors.Is(err, store.ErrWrongType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrDispatcherStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// healthCheck handles GET /health
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (a *API) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

// getStatus handles GET /status
// @Summary      Get system status
// @Description  Component health, dispatcher state, watched sources and event counters
// @Tags         system
// @Produce      json
// @Success      200  {object}  model.HealthStatus
// @Router       /status [get]
func (a *API) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.core.Status())
}

// getConfig handles GET /config
// @Summary      Get configuration
// @Description  The configuration the server was started with
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /config [get]
func (a *API) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, a.core.GetConfigManager().GetConfig("", nil))
}

// draw handles POST /draw
// @Summary      Draw a plot once
// @Description  Parses the draw arguments, reads the lists and returns the frame.
// @Description  The default format is the raw bitmap: 8-byte big-endian width,
// @Description  8-byte big-endian height, then RGB rows.
// @Tags         plots
// @Accept       json
// @Produce      octet-stream
// @Produce      png
// @Param        request  body   PlotRequest  true   "Draw arguments"
// @Param        format   query  string       false  "bitmap or png"
// @Success      200
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      501  {object}  ErrorResponse
// @Router       /draw [post]
func (a *API) draw(c *gin.Context) {
	var req PlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), drawTimeout)
	defer cancel()

	switch format := c.DefaultQuery("format", "bitmap"); format {
	case "bitmap":
		data, err := a.core.Draw(ctx, req.Args)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", data)
	case "png":
		data, err := a.core.DrawPNG(ctx, req.Args)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", data)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown format: " + format})
	}
}

// bind handles POST /bind
// @Summary      Bind a live plot
// @Description  Creates a render target redrawn whenever one of its lists changes
// @Tags         plots
// @Accept       json
// @Produce      json
// @Param        request  body      PlotRequest  true  "Bind arguments"
// @Success      202      {object}  BindResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse
// @Router       /bind [post]
func (a *API) bind(c *gin.Context) {
	var req PlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	id, err := a.core.Bind(req.Args)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, BindResponse{ID: id})
}

// getTargets handles GET /targets
// @Summary      List render targets
// @Tags         targets
// @Produce      json
// @Success      200  {array}  model.TargetInfo
// @Router       /targets [get]
func (a *API) getTargets(c *gin.Context) {
	targets := a.core.Targets()
	if targets == nil {
		targets = []model.TargetInfo{}
	}
	c.JSON(http.StatusOK, targets)
}

// getTarget handles GET /targets/:id
// @Summary      Get a render target
// @Tags         targets
// @Produce      json
// @Param        id   path      string  true  "Target id"
// @Success      200  {object}  model.TargetInfo
// @Failure      404  {object}  ErrorResponse
// @Router       /targets/{id} [get]
func (a *API) getTarget(c *gin.Context) {
	info, ok := a.core.Target(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "target not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// closeTarget handles DELETE /targets/:id
// @Summary      Close a render target
// @Tags         targets
// @Produce      json
// @Param        id   path      string  true  "Target id"
// @Success      202  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse
// @Router       /targets/{id} [delete]
func (a *API) closeTarget(c *gin.Context) {
	if err := a.core.CloseTarget(c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "closing"})
}

// getFrame handles GET /targets/:id/frame.png
// @Summary      Latest frame of a window target
// @Description  Only window targets that have been presented have a frame
// @Tags         targets
// @Produce      png
// @Param        id   path  string  true  "Target id"
// @Success      200
// @Failure      404  {object}  ErrorResponse
// @Router       /targets/{id}/frame.png [get]
func (a *API) getFrame(c *gin.Context) {
	frame, ok := a.board.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no frame for target"})
		return
	}
	c.Header("X-Frame-Sequence", fmt.Sprint(frame.Sequence))
	c.Header("Last-Modified", frame.Updated.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, "image/png", frame.PNG)
}
