package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/pkg/httpx"
	"github.com/aussiebroadwan/tenantconsole/pkg/slogx"
	"github.com/aussiebroadwan/tenantconsole/pkg/tenantsdk"
	"golang.org/x/time/rate"
)

// DefaultSuccessCode is the status.statusCode the backend sends for a
// successful login.
const DefaultSuccessCode = 112

// MinPasswordLength is the shortest password, in characters, the login
// form accepts.
const MinPasswordLength = 6

type LoginErrorKind int

const (
	InvalidCredentials LoginErrorKind = iota + 1
	AccountInactive
	Rejected
	ConnectionFailure
)

func (k LoginErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case AccountInactive:
		return "account_inactive"
	case Rejected:
		return "rejected"
	case ConnectionFailure:
		return "connection_failure"
	default:
		return "unknown"
	}
}

const (
	msgInvalidCredentials = "Invalid email or password. Please try again."
	msgAccountInactive    = "Your account is inactive. Please contact administrator."
	msgRejected           = "Login failed. Please try again."
	msgConnectionFailure  = "Login failed. Please check your connection and try again."
	msgThrottled          = "Too many login attempts. Please try again later."
)

// LoginError is the only error AuthGateway.Login returns. Message is safe to
// show to the user.
type LoginError struct {
	Kind    LoginErrorKind
	Message string
	Err     error // underlying cause, if any
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidCredentials = &LoginError{Kind: InvalidCredentials}
	ErrAccountInactive    = &LoginError{Kind: AccountInactive}
	ErrRejected           = &LoginError{Kind: Rejected}
	ErrConnectionFailure  = &LoginError{Kind: ConnectionFailure}
)

func (e *LoginError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *LoginError) Unwrap() error { return e.Err }

// Is matches any LoginError of the same kind.
func (e *LoginError) Is(target error) bool {
	t, ok := target.(*LoginError)
	return ok && t.Kind == e.Kind
}

func newLoginError(kind LoginErrorKind, msg string, cause error) *LoginError {
	return &LoginError{Kind: kind, Message: msg, Err: cause}
}

var (
	ErrInvalidEmail     = errors.New("please enter a valid email address")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// ValidateCredentials is the form check callers run before Login.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// AuthGateway exchanges credentials with the backend and records the
// resulting session.
type AuthGateway struct {
	Client      *tenantsdk.Client
	Sessions    *SessionStore
	SuccessCode int
	Limiter     *rate.Limiter // nil disables throttling
}

func NewAuthGateway(client *tenantsdk.Client, sessions *SessionStore) *AuthGateway {
	return &AuthGateway{
		Client:      client,
		Sessions:    sessions,
		SuccessCode: DefaultSuccessCode,
		Limiter:     httpx.NewLimiter(httpx.LoginLimit),
	}
}

// Login sends one login request. On success the session is written before
// Login returns. Every failure is a *LoginError and leaves storage alone.
func (g *AuthGateway) Login(ctx context.Context, email, password string) (domain.UserProfile, error) {
	l := slogx.FromContext(ctx)

	if g.Limiter != nil && !g.Limiter.Allow() {
		l.Warn("login throttled")
		return domain.UserProfile{}, newLoginError(Rejected, msgThrottled, nil)
	}

	resp, err := g.Client.Login(ctx, tenantsdk.LoginRequest{
		UserEmail: strings.TrimSpace(email),
		Password:  password,
	})
	if err != nil {
		lerr := classifyTransportError(err)
		l.Info("login failed", slog.String("kind", lerr.Kind.String()), slog.Any("error", err))
		return domain.UserProfile{}, lerr
	}

	fieldErrs := resp.FieldErrors()
	if resp.Status.StatusCode != g.successCode() || resp.Data == nil || len(fieldErrs) > 0 {
		msg := msgRejected
		switch {
		case len(fieldErrs) > 0:
			msg = fieldErrs[0]
		case resp.Status.StatusMessage != "":
			msg = resp.Status.StatusMessage
		}
		l.Info("login rejected", slog.Int("status_code", resp.Status.StatusCode), slog.String("message", msg))
		return domain.UserProfile{}, newLoginError(Rejected, msg, nil)
	}

	profile := profileFromRecord(*resp.Data)
	if !profile.Active {
		l.Info("login refused for inactive account", slog.String("user_id", profile.UserID))
		return domain.UserProfile{}, newLoginError(AccountInactive, msgAccountInactive, nil)
	}

	if err := g.Sessions.WriteSession(ctx, profile, profile.UserType); err != nil {
		l.Error("failed to write session", slog.Any("error", err))
		if cerr := g.Sessions.Clear(ctx); cerr != nil {
			l.Error("failed to clear partial session", slog.Any("error", cerr))
		}
		return domain.UserProfile{}, newLoginError(ConnectionFailure, msgConnectionFailure, err)
	}

	l.Info("login succeeded", slog.String("user_id", profile.UserID), slog.String("role", profile.UserType))
	return profile, nil
}

func (g *AuthGateway) successCode() int {
	if g.SuccessCode == 0 {
		return DefaultSuccessCode
	}
	return g.SuccessCode
}

func classifyTransportError(err error) *LoginError {
	var apiErr *tenantsdk.APIError
	if !errors.As(err, &apiErr) {
		return newLoginError(ConnectionFailure, msgConnectionFailure, err)
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return newLoginError(InvalidCredentials, msgInvalidCredentials, err)
	case apiErr.StatusCode == http.StatusForbidden:
		return newLoginError(AccountInactive, msgAccountInactive, err)
	case apiErr.ServerMessage() != "":
		return newLoginError(Rejected, apiErr.ServerMessage(), err)
	default:
		return newLoginError(ConnectionFailure, msgConnectionFailure, err)
	}
}

func profileFromRecord(r tenantsdk.UserRecord) domain.UserProfile {
	return domain.UserProfile{
		ID:       r.ID,
		UserID:   r.UserID,
		FullName: r.FullName,
		TenantID: r.TenantID,
		EmailID:  r.EmailID,
		Mobile:   r.Mobile,
		UserType: r.UserType,
		Active:   r.Active,
	}
}
