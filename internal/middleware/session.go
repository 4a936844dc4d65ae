package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	sessionDraftKey   = "draft_id"
	sessionProfileKey = "profile_id"
)

// Sessions maps a browser to its draft and profile. Drafts themselves live
// in memory, only the ids are stored.
type Sessions struct {
	Manager *scs.SessionManager
}

func NewSessionManager(ttl time.Duration, secure bool, db *sql.DB) *Sessions {
	sm := scs.New()

	sm.Lifetime = ttl
	sm.Store = sqlite3store.New(db)

	sm.Cookie.Name = "postdesk_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	sm.Cookie.Persist = false

	return &Sessions{Manager: sm}
}

func (s *Sessions) Middleware(logger *slog.Logger, tracer trace.Tracer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "middleware.Session")
			defer span.End()

			span.SetAttributes(attribute.String("session.cookie", s.Manager.Cookie.Name))

			s.Manager.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Sessions) DraftID(ctx context.Context) string {
	return s.Manager.GetString(ctx, sessionDraftKey)
}

// SetDraftID binds a new draft and renews the token.
func (s *Sessions) SetDraftID(ctx context.Context, id string) error {
	if err := s.Manager.RenewToken(ctx); err != nil {
		return err
	}
	s.Manager.Put(ctx, sessionDraftKey, id)
	return nil
}

func (s *Sessions) ProfileID(ctx context.Context) string {
	return s.Manager.GetString(ctx, sessionProfileKey)
}

func (s *Sessions) SetProfileID(ctx context.Context, id string) {
	s.Manager.Put(ctx, sessionProfileKey, id)
}
