// Package auth reads the signed session cookie issued by the identity
// service and exposes the acting principal to handlers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey  = "is_authenticated"
	userIDKey  = "user_id"
	userName   = "user_name"
	userLogin  = "user_login"
	userRole   = "user_role"
	minKeySize = 32
)

// ErrNoPrincipal is returned when a request carries no signed-in user.
var ErrNoPrincipal = errors.New("no signed-in user")

// SessionUser is what we cache in the session & inject into r.Context().
// ID is an ObjectID hex or, for the demo administrator, the demo tag.
type SessionUser struct {
	ID      string
	Name    string
	LoginID string
	Role    string
}

// Principal resolves u into the engine-facing principal. This is the one
// place a raw session id is interpreted.
func (u *SessionUser) Principal() (models.Principal, error) {
	ref, err := models.ParseUserRef(u.ID)
	if err != nil {
		return models.Principal{}, err
	}
	role, ok := models.ParseRole(u.Role)
	if !ok {
		return models.Principal{}, fmt.Errorf("unknown role %q", u.Role)
	}
	return models.Principal{Ref: ref, Role: role}, nil
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// CurrentPrincipal returns the resolved principal of the request.
func CurrentPrincipal(r *http.Request) (models.Principal, error) {
	u, ok := CurrentUser(r)
	if !ok {
		return models.Principal{}, ErrNoPrincipal
	}
	return u.Principal()
}

// WithTestUser injects u into the request context, bypassing the session.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// UserFetcher reloads a signed-in user on each request. A nil result
// signs the request out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager owns the cookie store.
type SessionManager struct {
	store     *sessions.CookieStore
	name      string
	log       *zap.Logger
	demoAdmin bool
	fetcher   UserFetcher
}

// NewSessionManager builds a cookie-backed session manager.
//
// In production (secure=true) cookies are Secure + SameSite=None. In local
// dev over http://localhost use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < minKeySize {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.String("name", name))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// EnableDemoAdmin allows sessions whose id is the demo tag.
func (sm *SessionManager) EnableDemoAdmin(on bool) { sm.demoAdmin = on }

// SetUserFetcher makes LoadSessionUser refresh the cookie's user from f.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// DemoAdminEnabled reports whether demo sessions are accepted.
func (sm *SessionManager) DemoAdminEnabled() bool { return sm.demoAdmin }

// LoadSessionUser injects the user into context if they are logged in.
// A cookie signed with a rotated key is treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			var scErr securecookie.Error
			if errors.As(err, &scErr) && scErr.IsDecode() {
				sm.log.Debug("ignoring undecodable session cookie", zap.Error(err))
			} else {
				sm.log.Warn("session load failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:      getString(sess, userIDKey),
				Name:    getString(sess, userName),
				LoginID: getString(sess, userLogin),
				Role:    getString(sess, userRole),
			}
			switch {
			case u.ID == models.DemoAdminTag:
				if !sm.demoAdmin {
					sm.log.Warn("rejecting demo session while demo admin is disabled")
					break
				}
				r = withUser(r, u)
			case sm.fetcher != nil:
				fresh := sm.fetcher.FetchUser(r.Context(), u.ID)
				if fresh == nil {
					sm.log.Debug("session user no longer active", zap.String("user_id", u.ID))
					break
				}
				r = withUser(r, fresh)
			default:
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SignIn writes u into the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userName] = u.Name
	sess.Values[userLogin] = u.LoginID
	sess.Values[userRole] = u.Role
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not, it answers 401 with a JSON error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		deny(w, http.StatusUnauthorized, "unauthorized", "Sign in to continue.")
	})
}

// RequireRole ensures there is a user with one of the allowed roles in
// context. Role comparison is case-insensitive.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized", "Sign in to continue.")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				sm.log.Debug("role not permitted",
					zap.String("role", u.Role),
					zap.String("path", r.URL.Path))
				deny(w, http.StatusForbidden, "forbidden", "Your role does not permit this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func deny(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
