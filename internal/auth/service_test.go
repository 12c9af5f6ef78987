package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingguard/internal/api"
	"pingguard/internal/session"
	"pingguard/pkg/errors"
	"pingguard/pkg/logger"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *session.Store, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	store := session.NewStore("")
	client := api.NewClient(srv.URL, store, 5*time.Second, logger.Nop())
	return NewService(client, store, logger.Nop()), store, &calls
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-xyz"})
	})
}

func TestLoginSavesSession(t *testing.T) {
	svc, store, _ := newTestService(t, okHandler())

	require.NoError(t, svc.Login(context.Background(), "alice", "hunter2"))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "tok-xyz", store.Token())
	assert.Equal(t, "alice", store.Username())
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc, _, calls := newTestService(t, okHandler())

	err := svc.Login(context.Background(), "", "hunter2")
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
	assert.Equal(t, int64(0), calls.Load())
}

func TestSignupValidationBeforeNetwork(t *testing.T) {
	valid := SignupInput{
		Username:        "alice",
		Password:        "hunter2",
		ConfirmPassword: "hunter2",
		Name:            "Alice",
		Phone:           "010-1234-5678",
	}

	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"missing fields", func(in *SignupInput) { in.Name = "" }},
		{"password mismatch", func(in *SignupInput) { in.ConfirmPassword = "other" }},
		{"password too short", func(in *SignupInput) { in.Password, in.ConfirmPassword = "abc", "abc" }},
		{"bad phone", func(in *SignupInput) { in.Phone = "02-1234-5678" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, calls := newTestService(t, okHandler())
			in := valid
			tt.mutate(&in)

			err := svc.Signup(context.Background(), in)
			assert.Equal(t, errors.KindValidation, errors.KindOf(err))
			assert.Equal(t, int64(0), calls.Load(), "validation failures must not reach the network")
		})
	}
}

func TestSignupSubmitsValidForm(t *testing.T) {
	svc, _, calls := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	err := svc.Signup(context.Background(), SignupInput{
		Username:        "alice",
		Password:        "hunter2",
		ConfirmPassword: "hunter2",
		Name:            "Alice",
		Phone:           "010-1234-5678",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestLogoutClearsSession(t *testing.T) {
	svc, store, _ := newTestService(t, okHandler())
	require.NoError(t, store.Save("tok", "alice"))

	require.NoError(t, svc.Logout())
	assert.False(t, store.IsAuthenticated())
}

func TestCurrentUserFallsBackToStoredUsername(t *testing.T) {
	svc, store, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	require.NoError(t, store.Save("tok", "alice"))

	user, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}
