// Package devserver exposes the generation engine over HTTP for the dev
// loop: an editor plugin or browser can regenerate declarations and list
// the registered graph without shelling out to the CLI.
package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	morphgen "github.com/morphlang/morphgen"
	"github.com/morphlang/morphgen/ir"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// BuildFunc constructs a fresh engine from the current source tree. The
// dev server rebuilds per request so edits are always visible.
type BuildFunc func() (*morphgen.Engine, error)

// Server serves the dev endpoints.
type Server struct {
	build  BuildFunc
	logger *slog.Logger
}

// New creates a dev server around an engine builder.
func New(build BuildFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{build: build, logger: logger}
}

// GenerateRequest is the POST /rpc/Generate body. An empty Name generates
// every registered declaration.
type GenerateRequest struct {
	Name string `json:"name" validate:"omitempty,min=1"`
}

// GenerateResult is one declaration's outcome in a GenerateResponse.
type GenerateResult struct {
	Name     string          `json:"name"`
	SourceID string          `json:"sourceId"`
	Output   string          `json:"output,omitempty"`
	Warnings []ir.Warning    `json:"warnings,omitempty"`
	Error    *morphgen.Error `json:"error,omitempty"`
}

// GenerateResponse is the POST /rpc/Generate response.
type GenerateResponse struct {
	Results []GenerateResult `json:"results"`
}

// DeclarationsRequest is the GET /rpc/Declarations query.
type DeclarationsRequest struct {
	Prefix string `schema:"prefix"`
}

// DeclarationsResponse lists the registered declaration names.
type DeclarationsResponse struct {
	Names []string `json:"names"`
}

// Handler returns the HTTP handler with logging and panic recovery
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc/Generate", s.handleGenerate)
	mux.HandleFunc("GET /rpc/Declarations", s.handleDeclarations)
	return s.recoverPanic(s.logRequests(mux))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, morphgen.Errorf(morphgen.CodeInvalidArgument, "failed to decode body: %v", err))
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, morphgen.AsError(err))
		return
	}

	engine, err := s.build()
	if err != nil {
		s.writeError(w, morphgen.AsError(err))
		return
	}

	var results []morphgen.Result
	if req.Name != "" {
		result, err := engine.Generate(r.Context(), req.Name)
		if err != nil {
			s.writeError(w, morphgen.AsError(err))
			return
		}
		results = []morphgen.Result{*result}
	} else {
		results, err = engine.GenerateAll(r.Context())
		if err != nil {
			s.writeError(w, morphgen.AsError(err))
			return
		}
	}

	resp := GenerateResponse{Results: make([]GenerateResult, len(results))}
	for i, res := range results {
		resp.Results[i] = GenerateResult{
			Name:     res.Name,
			SourceID: res.SourceID,
			Output:   res.Output,
			Warnings: res.Warnings,
			Error:    res.Err,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeclarations(w http.ResponseWriter, r *http.Request) {
	var req DeclarationsRequest
	if err := schemaDecoder.Decode(&req, r.URL.Query()); err != nil {
		s.writeError(w, morphgen.Errorf(morphgen.CodeInvalidArgument, "failed to decode query: %v", err))
		return
	}

	engine, err := s.build()
	if err != nil {
		s.writeError(w, morphgen.AsError(err))
		return
	}

	names := engine.Names()
	if req.Prefix != "" {
		filtered := names[:0]
		for _, name := range names {
			if strings.HasPrefix(name, req.Prefix) {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, DeclarationsResponse{Names: names})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent, nothing we can do. Log for debugging.
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, engErr *morphgen.Error) {
	s.writeJSON(w, engErr.Code.HTTPStatus(), engErr)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("PANIC recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				s.writeError(w, morphgen.NewError(morphgen.CodeInternal,
					fmt.Sprintf("internal server error (panic): %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
