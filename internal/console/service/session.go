package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/pkg/idx"
	"github.com/aussiebroadwan/tenantconsole/pkg/slogx"
)

// Persistent scope keys.
const (
	KeyLoggedIn      = "isLoggedIn"
	KeyUserID        = "userId"
	KeyUserRole      = "userRole"
	KeyCurrentUser   = "currentUser"
	KeyLoginTime     = "loginTime"
	KeyLastSessionID = "lastSessionId"
)

// Tab-local scope keys.
const KeyActiveSession = "activeSession"

const loggedInValue = "true"

var persistentKeys = []string{
	KeyLoggedIn,
	KeyUserID,
	KeyUserRole,
	KeyCurrentUser,
	KeyLoginTime,
	KeyLastSessionID,
}

// Reasons a stored session is not valid. They are resolved by Heal and are
// never shown to the user.
var (
	ErrNoSession       = errors.New("session: not logged in")
	ErrPartialWrite    = errors.New("session: incomplete record")
	ErrCorruptProfile  = errors.New("session: profile does not parse")
	ErrInactiveProfile = errors.New("session: profile inactive")
	ErrTabNotBound     = errors.New("session: no token in this context")
	ErrSuperseded      = errors.New("session: token issued to another context")
)

// SessionStore reads and writes the login state kept across the persistent
// scope, shared by every console, and the tab-local scope owned by this one.
type SessionStore struct {
	Persistent store.Scope
	Local      store.Scope
	Now        func() time.Time
}

func NewSessionStore(persistent, local store.Scope) *SessionStore {
	return &SessionStore{
		Persistent: persistent,
		Local:      local,
		Now:        time.Now,
	}
}

// WriteSession records a fresh login for profile. The first storage error
// is returned as is; whatever was written stays and fails validation.
func (s *SessionStore) WriteSession(ctx context.Context, profile domain.UserProfile, role string) error {
	blob, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	token := idx.New().String()

	writes := []struct {
		scope store.Scope
		key   string
		value string
	}{
		{s.Persistent, KeyLoggedIn, loggedInValue},
		{s.Persistent, KeyUserID, profile.UserID},
		{s.Persistent, KeyUserRole, role},
		{s.Persistent, KeyCurrentUser, string(blob)},
		{s.Persistent, KeyLoginTime, s.now().UTC().Format(time.RFC3339Nano)},
		{s.Persistent, KeyLastSessionID, token},
		{s.Local, KeyActiveSession, token},
	}
	for _, w := range writes {
		if err := w.scope.Set(ctx, w.key, w.value); err != nil {
			return fmt.Errorf("write %s: %w", w.key, err)
		}
	}

	slogx.FromContext(ctx).Debug("session written", slog.String("user_id", profile.UserID), slog.String("role", role))
	return nil
}

// ReadSession returns the stored session. ok is false when no usable
// profile is stored; an unparseable profile also clears the session.
func (s *SessionStore) ReadSession(ctx context.Context) (sess domain.Session, ok bool) {
	sess, err := s.Snapshot(ctx)
	if errors.Is(err, ErrCorruptProfile) {
		slogx.FromContext(ctx).Warn("discarding unparseable session profile")
		_ = s.Clear(ctx)
		return domain.Session{}, false
	}
	return sess, err == nil
}

// Snapshot reads the stored session without modifying storage. It returns
// ErrNoSession when no profile is stored and ErrCorruptProfile when the
// stored profile does not parse; the other fields are filled either way.
func (s *SessionStore) Snapshot(ctx context.Context) (domain.Session, error) {
	var sess domain.Session
	sess.LoggedIn = s.get(ctx, s.Persistent, KeyLoggedIn) == loggedInValue
	sess.UserID = s.get(ctx, s.Persistent, KeyUserID)
	sess.LastIssuedToken = s.get(ctx, s.Persistent, KeyLastSessionID)
	sess.Token = s.get(ctx, s.Local, KeyActiveSession)
	if ts := s.get(ctx, s.Persistent, KeyLoginTime); ts != "" {
		sess.LoginTime, _ = time.Parse(time.RFC3339Nano, ts)
	}

	blob := s.get(ctx, s.Persistent, KeyCurrentUser)
	if blob == "" {
		return sess, ErrNoSession
	}
	if err := json.Unmarshal([]byte(blob), &sess.Profile); err != nil {
		sess.Profile = domain.UserProfile{}
		return sess, ErrCorruptProfile
	}
	sess.UserRole = sess.Profile.UserType
	return sess, nil
}

// Validate reports why the stored session is not valid, or nil when it is.
// It never modifies storage.
func (s *SessionStore) Validate(ctx context.Context) error {
	flag, err := s.lookup(ctx, s.Persistent, KeyLoggedIn)
	if err != nil {
		return err
	}
	if flag != loggedInValue {
		keys, err := s.Persistent.Keys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k != KeyLoggedIn && slices.Contains(persistentKeys, k) {
				return ErrPartialWrite
			}
		}
		return ErrNoSession
	}

	userID, err := s.lookup(ctx, s.Persistent, KeyUserID)
	if err != nil {
		return err
	}
	blob, err := s.lookup(ctx, s.Persistent, KeyCurrentUser)
	if err != nil {
		return err
	}
	mirror, err := s.lookup(ctx, s.Persistent, KeyLastSessionID)
	if err != nil {
		return err
	}
	if userID == "" || blob == "" || mirror == "" {
		return ErrPartialWrite
	}

	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(blob), &profile); err != nil {
		return ErrCorruptProfile
	}
	if !profile.Active {
		return ErrInactiveProfile
	}

	token, err := s.lookup(ctx, s.Local, KeyActiveSession)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrTabNotBound
	}
	if token != mirror {
		return ErrSuperseded
	}
	return nil
}

func (s *SessionStore) IsValid(ctx context.Context) bool {
	return s.Validate(ctx) == nil
}

// Heal repairs storage after a failed validation. Broken persistent state
// is cleared for every context. A context whose token was superseded by a
// newer login elsewhere only drops its own tab-local state.
func (s *SessionStore) Heal(ctx context.Context) error {
	err := s.Validate(ctx)
	switch {
	case err == nil, errors.Is(err, ErrNoSession), errors.Is(err, ErrTabNotBound):
		return nil
	case errors.Is(err, ErrSuperseded):
		slogx.FromContext(ctx).Info("session superseded by another console")
		return s.Local.Clear(ctx)
	case errors.Is(err, ErrPartialWrite), errors.Is(err, ErrCorruptProfile), errors.Is(err, ErrInactiveProfile):
		slogx.FromContext(ctx).Info("clearing invalid session", slog.Any("reason", err))
		return s.Clear(ctx)
	default:
		return err
	}
}

// Clear removes every persistent session key and empties the tab-local
// scope. Clearing an empty session is a no-op.
func (s *SessionStore) Clear(ctx context.Context) error {
	var errs []error
	for _, k := range persistentKeys {
		if err := s.Persistent.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	if err := s.Local.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear tab-local scope: %w", err))
	}
	return errors.Join(errs...)
}

// UserID returns the stored user id, or "" when there is none.
func (s *SessionStore) UserID(ctx context.Context) string {
	return s.get(ctx, s.Persistent, KeyUserID)
}

func (s *SessionStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// lookup maps a missing key to "".
func (s *SessionStore) lookup(ctx context.Context, scope store.Scope, key string) (string, error) {
	v, err := scope.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// get is lookup for callers that treat storage errors as absence.
func (s *SessionStore) get(ctx context.Context, scope store.Scope, key string) string {
	v, err := s.lookup(ctx, scope, key)
	if err != nil {
		slogx.FromContext(ctx).Warn("session read failed", slog.String("key", key), slog.Any("error", err))
		return ""
	}
	return v
}
