package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"w2w-assistant-backend/internal/completion"
	"w2w-assistant-backend/internal/config"
	"w2w-assistant-backend/internal/prompt"
	"w2w-assistant-backend/internal/types"
)

const maxBodyBytes = 1 << 20

// Responder produces a reply for an assembled prompt. *completion.Chain and
// *completion.Cached implement it.
type Responder interface {
	Generate(ctx context.Context, req completion.Request) (completion.Result, error)
	Model() string
}

type Server struct {
	router    *chi.Mux
	cfg       config.Config
	assembler *prompt.Assembler
	responder Responder
}

func NewServer(cfg config.Config, assembler *prompt.Assembler, responder Responder) *Server {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	s := &Server{
		router:    r,
		cfg:       cfg,
		assembler: assembler,
		responder: responder,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/chat", s.handleChat)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, types.InfoResponse{
		Message: "W2W Eco-Assistant API",
		Version: "1.0",
		Endpoints: map[string]string{
			"/chat":   "POST - Send chat messages",
			"/health": "GET - Health check",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	model := s.responder.Model()
	if model == "" {
		model = "not initialized"
	}
	s.writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", Model: model})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	var req types.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "message" {
			s.writeError(w, http.StatusBadRequest, "Message must be a string", "")
			return
		}
		log.Debug().Err(err).Msg("chat body rejected")
		s.writeError(w, http.StatusBadRequest, "No message provided", "")
		return
	}
	if req.Message == nil {
		s.writeError(w, http.StatusBadRequest, "No message provided", "")
		return
	}
	message := strings.TrimSpace(*req.Message)
	if message == "" {
		s.writeError(w, http.StatusBadRequest, "Empty message", "")
		return
	}

	res, err := s.responder.Generate(r.Context(), completion.Request{
		Message: message,
		Prompt:  s.assembler.Assemble(message),
	})
	if err != nil {
		if errors.Is(err, completion.ErrUnavailable) {
			log.Error().Msg("no completion provider available")
			s.writeError(w, http.StatusInternalServerError, "AI model not initialized", "")
			return
		}
		log.Error().Err(err).Msg("generate failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to generate response", s.errorDetails(err))
		return
	}

	log.Info().Str("source", res.Source).Int("reply_len", len(res.Text)).Msg("chat answered")
	s.writeJSON(w, http.StatusOK, types.ChatResponse{Response: res.Text, Status: "success"})
}

// errorDetails keeps upstream error text out of responses unless configured.
func (s *Server) errorDetails(err error) string {
	if s.cfg.ExposeErrorDetails {
		return err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "upstream provider timed out"
	}
	return "upstream provider error"
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg, details string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg, Details: details})
}
