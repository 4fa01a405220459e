package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/m3rciful/estatebot/core/logger"
)

const maxEventBytes = 1 << 20

// Enqueuer is the part of a Queue the ingress needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, e Event) error
}

// ServerOptions configures the event ingress.
type ServerOptions struct {
	Addr   string
	Secret string
	Queue  Enqueuer
	Now    func() time.Time
}

// Server accepts backend events on POST /events. Callers authenticate
// with an HS256 bearer token signed with the shared secret.
type Server struct {
	opts ServerOptions
	http *http.Server
}

// NewServer builds the ingress. Call Start to listen.
func NewServer(opts ServerOptions) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts}
	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	r.Handle("/events", s.authenticate(http.HandlerFunc(s.handleEvent))).Methods(http.MethodPost)
	return r
}

// Start listens in the background. It fails fast when the address cannot be bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("events listen: %w", err)
	}
	logger.Events.LogAttrs(context.Background(), slog.LevelInfo, "",
		slog.String("event", "events.listen"),
		slog.String("addr", ln.Addr().String()),
	)
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Events.LogAttrs(context.Background(), slog.LevelError, "",
				slog.String("event", "events.serve"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization header format must be Bearer {token}"})
			return
		}
		if _, err := ValidateToken(parts[1], s.opts.Secret); err != nil {
			logger.Events.LogAttrs(r.Context(), slog.LevelWarn, "",
				slog.String("event", "events.unauthorized"),
				slog.String("remote", r.RemoteAddr),
				slog.String("err", err.Error()),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var e Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed event"})
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.opts.Now().UTC()
	}
	ctx := logger.WithRID(r.Context(), e.ID)
	if err := e.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.opts.Queue.Enqueue(ctx, e); err != nil {
		logger.Events.LogAttrs(ctx, slog.LevelError, "",
			slog.String("event", "events.enqueue_failed"),
			slog.String("type", string(e.Type)),
			slog.String("err", err.Error()),
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue unavailable"})
		return
	}
	logger.Events.LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "events.accepted"),
		slog.String("type", string(e.Type)),
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": e.ID})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// SignToken issues a bearer token for the backend, valid for ttl.
func SignToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// ValidateToken verifies an HS256 token signed with secret.
func ValidateToken(raw, secret string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
