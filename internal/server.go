package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/slack-go/slack"

	"github.com/mkhoudour/taskbridge/internal/config"
	"github.com/mkhoudour/taskbridge/internal/interaction"
	"github.com/mkhoudour/taskbridge/internal/orchestrator"
	"github.com/mkhoudour/taskbridge/internal/slackclient"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
	"github.com/mkhoudour/taskbridge/pkg/clog"
)

// Server terminates the HTTP surface: the Slack endpoints, the health check
// and the read-only ops API.
type Server struct {
	server       *http.Server
	env          *config.Env
	router       *interaction.Router
	orchestrator *orchestrator.Orchestrator
	slackClient  *slackclient.Client
}

func NewServer(
	env *config.Env,
	router *interaction.Router,
	orch *orchestrator.Orchestrator,
	slackClient *slackclient.Client,
) *Server {
	return &Server{
		env:          env,
		router:       router,
		orchestrator: orch,
		slackClient:  slackClient,
	}
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it on shutdown also
// cancels in-flight handlers.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(
		clog.SlogChiMiddleware(),
		middleware.Recoverer,
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/slack", func(r chi.Router) {
		r.Use(s.verifySlackSignature)
		r.Post("/commands", s.handleSlashCommand)
		r.Post("/interactions", s.handleInteraction)
		r.Post("/events", s.handleEvent)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}).Handler)
		r.Get("/tasks", s.handleListTasks)
	})

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     r,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// verifySlackSignature authenticates requests using Slack's signing secret.
// The body is consumed for the HMAC and restored for downstream handlers.
// An empty secret skips verification; that is for local development only.
func (s *Server) verifySlackSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.env.SigningSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		verifier, err := slack.NewSecretsVerifier(r.Header, s.env.SigningSecret)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := verifier.Ensure(); err != nil {
			slog.Warn("rejected request with invalid slack signature", "path", r.URL.Path)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleSlashCommand answers /task by opening the creation modal. Slack
// expects an answer within 3 seconds; views.open is the only outbound call
// on this path.
func (s *Server) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	clog.AddAttributes(r.Context(), map[string]any{"command": cmd.Command, "channel_id": cmd.ChannelID})

	switch cmd.Command {
	case "/task":
		if err := s.slackClient.OpenTaskModal(r.Context(), cmd.TriggerID, cmd.ChannelID); err != nil {
			clog.AddError(r.Context(), err)
			writeJSON(w, http.StatusOK, map[string]string{
				"response_type": "ephemeral",
				"text":          "❌ " + cerr.UserMessage(err),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"response_type": "ephemeral",
			"text":          "Unknown command.",
		})
	}
}

// handleInteraction unwraps the form-encoded payload field and hands the JSON
// to the interaction router.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	payload := r.PostFormValue("payload")
	if payload == "" {
		http.Error(w, "missing payload", http.StatusBadRequest)
		return
	}

	resp := s.router.Handle(r.Context(), []byte(payload))
	if resp.Body == nil {
		w.WriteHeader(resp.StatusCode)
		return
	}
	writeJSON(w, resp.StatusCode, resp.Body)
}

type slackEvent struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
}

// handleEvent acknowledges Events API deliveries. Slack's endpoint handshake
// wants the challenge echoed back as plain text.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var event slackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if event.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(event.Challenge))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleListTasks serves the mirrored task list for the ops dashboard.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	tasks, err := s.orchestrator.ListTasks(r.Context(), channelID, limit)
	if err != nil {
		clog.AddError(r.Context(), err)
		http.Error(w, "failed to list tasks", cerr.CodeOf(err).HTTPCode())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
