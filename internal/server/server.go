// Package server exposes the engine over HTTP with the endpoints the editor
// extension calls.
//
// Endpoints:
//
//	GET  /is_activated
//	POST /get_type_from_pos    {filePath, line, character}
//	GET  /get_type_from_pos?filePath=&line=&character=
//	POST /get_object_props     {storeKey}
//	GET  /get_object_props?storeKey=
//	POST /extract_types        {filePath}
//	GET  /metrics
//
// Type objects travel in {kind: "SERIALIZED_TYPE_OBJECT", value} envelopes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	tsexpand "github.com/d-kimuson/ts-type-expand"
	"github.com/d-kimuson/ts-type-expand/internal/logging"
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// Service is the engine surface the server needs.
type Service interface {
	ExtractDeclaredTypes(ctx context.Context, path string) ([]to.Declaration, error)
	ClassifyAtPosition(ctx context.Context, path string, line, column int) (tsexpand.TypeAtPosition, error)
	GetProperties(ctx context.Context, storeKey string) []to.Property
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	logger *slog.Logger
	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the router.
func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), requestMetrics())
	r.GET("/is_activated", s.handleIsActivated)
	r.GET("/get_type_from_pos", s.handleTypeFromPos)
	r.POST("/get_type_from_pos", s.handleTypeFromPos)
	r.GET("/get_object_props", s.handleObjectProps)
	r.POST("/get_object_props", s.handleObjectProps)
	r.POST("/extract_types", s.handleExtractTypes)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()

	s.logger.Info("server listening", "addr", l.Addr().String())
	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// bind decodes the query string of GET requests and the JSON body
// otherwise, then validates binding tags.
func bind(c *gin.Context, req any) error {
	if c.Request.Method == http.MethodGet {
		if err := queryDecoder.Decode(req, c.Request.URL.Query()); err != nil {
			return err
		}
		return binding.Validator.ValidateStruct(req)
	}
	return c.ShouldBindJSON(req)
}

func ok[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{Success: true, Data: data})
}

func fail(c *gin.Context, status int, body ErrorBody) {
	c.AbortWithStatusJSON(status, Response[any]{Error: &body})
}

func (s *Server) invalid(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, ErrorBody{Reason: reasonInvalidRequest, Message: err.Error()})
}

// engineError maps engine failures to status codes and error bodies.
func (s *Server) engineError(c *gin.Context, err error) {
	var e *tsexpand.Error
	if !errors.As(err, &e) {
		s.logger.Error("unexpected engine error", "path", c.FullPath(), "err", err)
		fail(c, http.StatusInternalServerError, ErrorBody{Reason: reasonInternal, Message: err.Error()})
		return
	}
	body := ErrorBody{Reason: string(e.Reason), Message: err.Error()}
	if e.ExportReason != "" {
		body.Meta = map[string]string{"reason": string(e.ExportReason)}
	}
	status := http.StatusUnprocessableEntity
	switch e.Reason {
	case tsexpand.ReasonFileNotFound, tsexpand.ReasonNodeNotFound:
		status = http.StatusNotFound
	}
	fail(c, status, body)
}

func (s *Server) handleIsActivated(c *gin.Context) {
	ok(c, IsActivatedResponse{IsActivated: true})
}

func (s *Server) handleTypeFromPos(c *gin.Context) {
	var req TypeFromPosRequest
	if err := bind(c, &req); err != nil {
		s.invalid(c, err)
		return
	}
	res, err := s.svc.ClassifyAtPosition(c.Request.Context(), req.FilePath, req.Line, req.Character)
	if err != nil {
		s.engineError(c, err)
		return
	}
	env, err := to.Serialize(res.Type)
	if err != nil {
		s.engineError(c, err)
		return
	}
	ok(c, TypeFromPosResponse{DeclareName: res.DeclaredName, Type: env})
}

func (s *Server) handleObjectProps(c *gin.Context) {
	var req ObjectPropsRequest
	if err := bind(c, &req); err != nil {
		s.invalid(c, err)
		return
	}
	props, err := to.SerializeProperties(s.svc.GetProperties(c.Request.Context(), req.StoreKey))
	if err != nil {
		s.engineError(c, err)
		return
	}
	ok(c, ObjectPropsResponse{Props: props})
}

func (s *Server) handleExtractTypes(c *gin.Context) {
	var req ExtractTypesRequest
	if err := bind(c, &req); err != nil {
		s.invalid(c, err)
		return
	}
	decls, err := s.svc.ExtractDeclaredTypes(c.Request.Context(), req.FilePath)
	if err != nil {
		s.engineError(c, err)
		return
	}
	out := ExtractTypesResponse{Declarations: make([]SerializedDeclaration, 0, len(decls))}
	for _, d := range decls {
		env, err := to.Serialize(d.Type)
		if err != nil {
			s.engineError(c, err)
			return
		}
		out.Declarations = append(out.Declarations, SerializedDeclaration{DeclareName: d.DeclaredName, Type: env})
	}
	ok(c, out)
}
