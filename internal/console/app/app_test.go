package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/service"
)

func testConfig(t *testing.T, store string) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		APIURL:               "http://127.0.0.1:0",
		HTTPTimeout:          time.Second,
		LoginSuccessCode:     112,
		Store:                store,
		DatabaseFile:         filepath.Join(dir, "console.db"),
		SyncInterval:         10 * time.Millisecond,
		ChangeRetention:      time.Hour,
		HousekeepingInterval: time.Hour,
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
	}
}

func newTestApp(t *testing.T, cfg Config) *Application {
	t.Helper()
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	return app
}

var testProfile = domain.UserProfile{
	ID:       "rec-1",
	UserID:   "u-100",
	FullName: "Ada Lovelace",
	EmailID:  "ada@example.com",
	UserType: "TenantUser",
	Active:   true,
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "etcd"))
	require.ErrorContains(t, err, `unknown store driver "etcd"`)
}

func TestNewRejectsBadRoutesFile(t *testing.T) {
	cfg := testConfig(t, StoreMemory)
	cfg.RoutesFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "route table")
}

func TestStatusSignedOut(t *testing.T) {
	app := newTestApp(t, testConfig(t, StoreMemory))

	st := app.Status(context.Background())
	assert.False(t, st.LoggedIn)
	assert.False(t, st.Valid)
}

func TestStatusAndLogoutAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, StoreSQLite)

	first := newTestApp(t, cfg)
	second := newTestApp(t, cfg)

	require.NoError(t, first.sessions.WriteSession(ctx, testProfile, testProfile.UserType))
	require.True(t, first.sessions.IsValid(ctx))

	// The second handle sees the record but is not bound to it.
	st := second.Status(ctx)
	assert.True(t, st.LoggedIn)
	assert.True(t, st.Valid)
	assert.False(t, st.Bound)
	assert.True(t, first.Status(ctx).Bound)
	assert.Equal(t, "Ada Lovelace", st.Profile.FullName)
	assert.False(t, st.LoginTime.IsZero())

	require.NoError(t, second.Logout(ctx))
	assert.False(t, first.sessions.IsValid(ctx))
	assert.False(t, first.Status(ctx).LoggedIn)
}

func TestStatusReportsDamagedRecord(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, testConfig(t, StoreSQLite))

	require.NoError(t, app.persistent.Set(ctx, "isLoggedIn", "true"))

	st := app.Status(ctx)
	assert.False(t, st.Valid)
	assert.Error(t, st.Reason)
}

func TestStatusLeavesCorruptProfileInPlace(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, StoreSQLite)

	first := newTestApp(t, cfg)
	second := newTestApp(t, cfg)

	require.NoError(t, first.sessions.WriteSession(ctx, testProfile, testProfile.UserType))
	require.NoError(t, first.persistent.Set(ctx, "currentUser", "[broken"))

	st := second.Status(ctx)
	assert.False(t, st.LoggedIn)
	assert.False(t, st.Valid)
	assert.ErrorIs(t, st.Reason, service.ErrCorruptProfile)

	keys, err := first.persistent.Keys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "currentUser")
	assert.Contains(t, keys, "isLoggedIn")
}

func TestGatewayUsesConfiguredClient(t *testing.T) {
	var gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-Id")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": map[string]any{"statusCode": 7, "statusMessage": "OK"},
			"data": map[string]any{
				"id": "rec-1", "userId": "u-100", "fullName": "Ada Lovelace",
				"emailId": "ada@example.com", "userType": "super-admin", "active": true,
			},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, StoreMemory)
	cfg.APIURL = srv.URL
	cfg.LoginSuccessCode = 7
	app := newTestApp(t, cfg)

	profile, err := app.gateway.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "super-admin", profile.UserType)
	assert.Empty(t, gotUser, "login is a public endpoint")
	assert.True(t, app.access.HasRole(context.Background(), "super-admin"))
}

func TestShutdownWithoutRun(t *testing.T) {
	app, err := New(context.Background(), testConfig(t, StoreSQLite))
	require.NoError(t, err)
	require.NoError(t, app.Shutdown())
}
