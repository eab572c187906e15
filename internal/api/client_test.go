package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"mantrify/internal/api"
	"mantrify/internal/queue"
	"mantrify/internal/testsupport"
)

type recordingCreds struct {
	token        string
	unauthorized atomic.Int32
}

func (c *recordingCreds) Credential() (string, bool) { return c.token, c.token != "" }

func (c *recordingCreds) OnUnauthorized() { c.unauthorized.Add(1) }

func newClient(t *testing.T, baseURL string, opts ...api.Option) *api.Client {
	t.Helper()
	client, err := api.NewClient(api.Config{BaseURL: baseURL}, opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "ftp://example.com", "://bad"} {
		_, err := api.NewClient(api.Config{BaseURL: base})
		require.Error(t, err, "base %q", base)
	}
	client, err := api.NewClient(api.Config{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", client.BaseURL())
}

func TestStreamURL(t *testing.T) {
	require.Equal(t, "https://api.example.com/meditations/42/stream", api.StreamURL("https://api.example.com/", 42))
	client := newClient(t, "http://localhost:3000")
	require.Equal(t, "http://localhost:3000/meditations/7/stream", client.StreamURL(7))
}

func TestErrorKindsByStatus(t *testing.T) {
	cases := []struct {
		status    int
		kind      error
		retryable bool
	}{
		{http.StatusBadRequest, api.ErrValidation, false},
		{http.StatusUnprocessableEntity, api.ErrValidation, false},
		{http.StatusUnauthorized, api.ErrUnauthorized, false},
		{http.StatusForbidden, api.ErrForbidden, false},
		{http.StatusNotFound, api.ErrNotFound, false},
		{http.StatusConflict, api.ErrConflict, false},
		{http.StatusTooManyRequests, api.ErrRateLimited, true},
		{http.StatusMethodNotAllowed, api.ErrRejected, false},
		{http.StatusInternalServerError, api.ErrTransient, true},
		{http.StatusBadGateway, api.ErrTransient, true},
		{http.StatusServiceUnavailable, api.ErrTransient, true},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			backend := testsupport.NewFakeBackend(t)
			backend.Respond("GET /meditations/all", tc.status, `{"error":{"code":"X","message":"nope"}}`)

			_, err := newClient(t, backend.URL()).ListMeditations(context.Background())
			require.ErrorIs(t, err, tc.kind)
			require.Equal(t, tc.retryable, api.Retryable(err))

			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.StatusCode)
			require.Equal(t, "X", apiErr.Code)
			require.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestNonJSONErrorBodyKeepsText(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Respond("GET /meditations/all", http.StatusBadGateway, "upstream exploded")

	_, err := newClient(t, backend.URL()).ListMeditations(context.Background())
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "upstream exploded", apiErr.Message)
}

func TestLongErrorBodyIsCutOnRuneBoundary(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Respond("GET /meditations/all", http.StatusBadGateway, "x"+strings.Repeat("é", 300))

	_, err := newClient(t, backend.URL()).ListMeditations(context.Background())
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	require.True(t, utf8.ValidString(apiErr.Message))
	require.Equal(t, "x"+strings.Repeat("é", 199)+"...", apiErr.Message)
}

func TestNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	_, err := newClient(t, base).ListMeditations(context.Background())
	require.ErrorIs(t, err, api.ErrTransient)
	require.True(t, api.Retryable(err))
	require.Equal(t, "The generation service is unavailable; try again.", api.UserMessage(err))
}

func TestCanceledContextIsNotTransient(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, backend.URL()).ListMeditations(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, api.Retryable(err))
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.RequireToken("good")
	creds := &recordingCreds{token: "stale"}

	_, err := newClient(t, backend.URL(), api.WithCredentials(creds)).QueueRecords(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
	require.Equal(t, int32(1), creds.unauthorized.Load())
	require.Equal(t, "You must log in to do that.", api.UserMessage(err))
}

func TestAnonymousUnauthorizedSkipsHook(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.RequireToken("good")

	_, err := newClient(t, backend.URL()).QueueRecords(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestListMeditationsHonorsCredential(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.RequireToken("tok")
	backend.AddMeditation(testsupport.FakeMeditation{ID: 1, Title: "Public", Visibility: "public", Listens: 12})
	backend.AddMeditation(testsupport.FakeMeditation{ID: 2, Title: "Mine", Visibility: "private"})

	anon, err := newClient(t, backend.URL()).ListMeditations(context.Background())
	require.NoError(t, err)
	require.Len(t, anon, 1)
	require.Equal(t, "Public", anon[0].Title)
	require.Equal(t, int64(12), anon[0].ListenCount)

	authed, err := newClient(t, backend.URL(), api.WithCredentials(api.StaticToken("tok"))).ListMeditations(context.Background())
	require.NoError(t, err)
	require.Len(t, authed, 2)
}

func TestMeditationListenCountPrefersCurrentField(t *testing.T) {
	var m api.Meditation
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"title":"x","listenCount":5,"listens":9}`), &m))
	require.Equal(t, int64(5), m.ListenCount)
	require.Equal(t, int64(3), m.ID)
}

func TestMeditationLifecycleCalls(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddMeditation(testsupport.FakeMeditation{ID: 5, Title: "Old", Visibility: "public"})
	client := newClient(t, backend.URL())
	ctx := context.Background()

	fav, err := client.SetFavorite(ctx, 5, true)
	require.NoError(t, err)
	require.True(t, fav.Favorite)
	require.True(t, backend.Meditation(5).Favorite)

	title := "New"
	private := "private"
	updated, err := client.UpdateMeditation(ctx, 5, api.MeditationUpdate{Title: &title, Visibility: &private})
	require.NoError(t, err)
	require.Equal(t, "New", updated.Title)
	require.Equal(t, "private", updated.Visibility)

	res, err := client.DeleteMeditation(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), res.ID)

	_, err = client.DeleteMeditation(ctx, 5)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestQueueRecordPicksFromListing(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddRecord(queue.Record{ID: 3, UserID: 1, Status: queue.StatusElevenLabs, JobFilename: "a.json"})
	backend.AddRecord(queue.Record{ID: 4, UserID: 2, Status: queue.StatusQueued, JobFilename: "b.json"})
	client := newClient(t, backend.URL())

	rec, err := client.QueueRecord(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, queue.StatusElevenLabs, rec.Status)
	require.Equal(t, "a.json", rec.JobFilename)

	missing, err := client.QueueRecord(context.Background(), 99)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestQueueRecordsRejectsUnknownStatus(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Respond("GET /admin/queuer", http.StatusOK, `{"queue":[{"id":1,"status":"failed"}]}`)

	_, err := newClient(t, backend.URL()).QueueRecords(context.Background())
	require.ErrorIs(t, err, api.ErrProtocol)
}

func TestDeleteQueueRecord(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddRecord(queue.Record{ID: 8, Status: queue.StatusStarted})
	client := newClient(t, backend.URL())

	res, err := client.DeleteQueueRecord(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, int64(8), res.ID)
	require.Nil(t, backend.Record(8))

	_, err = client.DeleteQueueRecord(context.Background(), 8)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestAdminUsersAndMeditations(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddUser(testsupport.FakeUser{ID: 1, Email: "admin@example.com", IsAdmin: true})
	backend.AddUser(testsupport.FakeUser{ID: 2, Email: "user@example.com"})
	backend.AddMeditation(testsupport.FakeMeditation{ID: 9, Title: "Hidden", Visibility: "private"})
	client := newClient(t, backend.URL())
	ctx := context.Background()

	users, err := client.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.True(t, users[0].IsAdmin)

	_, err = client.DeleteUser(ctx, 2, api.DeleteUserOptions{SavePublicMeditations: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"savePublicMeditationsAsBenevolentUser":true}`, string(backend.UserDeleteBody(2)))

	all, err := client.AdminMeditations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = client.AdminDeleteMeditation(ctx, 9)
	require.NoError(t, err)
	require.Nil(t, backend.Meditation(9))
}

func TestLogin(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.RequireToken("issued-token")
	backend.AddUser(testsupport.FakeUser{ID: 4, Email: "me@example.com", Password: "secret"})
	client := newClient(t, backend.URL(), api.WithCredentials(api.StaticToken("ignored")))

	res, err := client.Login(context.Background(), " me@example.com ", "secret")
	require.NoError(t, err)
	require.Equal(t, "issued-token", res.AccessToken)
	require.Equal(t, int64(4), res.User.ID)

	_, err = client.Login(context.Background(), "me@example.com", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestLoginMissingTokenIsProtocolError(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Respond("POST /users/login", http.StatusOK, `{"message":"ok"}`)

	_, err := newClient(t, backend.URL()).Login(context.Background(), "a@b.c", "x")
	require.ErrorIs(t, err, api.ErrProtocol)
}
