// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/usecases"
)

// Server exposes the query controller to browser and mobile front ends.
type Server struct {
	controller   *usecases.QueryController
	defaultTheme string
	logger       *zap.Logger
	addr         string
}

// NewServer creates a new HTTP server.
func NewServer(controller *usecases.QueryController, defaultTheme string, logger *zap.Logger, addr string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		controller:   controller,
		defaultTheme: defaultTheme,
		logger:       logger,
		addr:         addr,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("/", s.handleIndex)

	// API
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/state/stream", s.handleStateStream) // SSE
	mux.HandleFunc("/api/health", s.handleHealth)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
	}

	s.logger.Info("chainref server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type askBody struct {
	Question string `json:"question"`
	Theme    string `json:"theme"`
}

// handleAsk submits a question. Blank questions are rejected here, before
// they reach the controller.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body askBody
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
	} else {
		r.ParseForm()
		body.Question = r.FormValue("question")
		body.Theme = r.FormValue("theme")
	}

	if strings.TrimSpace(body.Question) == "" {
		http.Error(w, "Please enter a question", http.StatusBadRequest)
		return
	}
	theme := strings.TrimSpace(body.Theme)
	if theme == "" {
		theme = s.defaultTheme
	}

	s.controller.Submit(body.Question, theme)
	writeJSON(w, http.StatusAccepted, toStateJSON(s.controller.Snapshot()))
}

// handleState returns the three signals as one JSON document.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, toStateJSON(s.controller.Snapshot()))
}

// handleStateStream pushes every state change as a server-sent event.
func (s *Server) handleStateStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	states, unsubscribe := s.controller.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if err := sendSSE(w, flusher, toStateJSON(state)); err != nil {
				s.logger.Debug("state stream closed", zap.Error(err))
				return
			}
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// stateJSON mirrors the backend's field names so front ends can share
// their chain models.
type stateJSON struct {
	Generation uint64      `json:"generation"`
	View       string      `json:"view"`
	Loading    bool        `json:"loading"`
	Error      *string     `json:"error"`
	Result     *resultJSON `json:"result"`
}

type resultJSON struct {
	Theme   string      `json:"theme"`
	Summary string      `json:"summary"`
	Chain   []entryJSON `json:"chain"`
}

type entryJSON struct {
	Order                 int              `json:"order"`
	Reference             string           `json:"reference"`
	Text                  string           `json:"text"`
	LinkingPhrase         string           `json:"linkingPhrase"`
	NextVerse             *string          `json:"nextVerse"`
	CrossThemeConnections []connectionJSON `json:"crossThemeConnections"`
}

type connectionJSON struct {
	Theme     string `json:"theme"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

func toStateJSON(s usecases.State) stateJSON {
	out := stateJSON{
		Generation: s.Generation,
		View:       s.View().String(),
		Loading:    s.Loading,
	}
	if s.Error != "" {
		msg := s.Error
		out.Error = &msg
	}
	if s.Result != nil {
		out.Result = toResultJSON(s.Result)
	}
	return out
}

func toResultJSON(r *entities.QueryResult) *resultJSON {
	out := &resultJSON{
		Theme:   r.Theme,
		Summary: r.Summary,
		Chain:   make([]entryJSON, len(r.Chain)),
	}
	for i, e := range r.Chain {
		conns := make([]connectionJSON, len(e.CrossThemeConnections))
		for j, c := range e.CrossThemeConnections {
			conns[j] = connectionJSON{Theme: c.Theme, Reference: c.Reference, Text: c.Text}
		}
		out.Chain[i] = entryJSON{
			Order:                 e.Order,
			Reference:             e.Reference,
			Text:                  e.Text,
			LinkingPhrase:         e.LinkingPhrase,
			NextVerse:             e.NextReference,
			CrossThemeConnections: conns,
		}
	}
	return out
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
