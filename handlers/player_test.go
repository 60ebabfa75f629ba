package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncify/syncify/backend/go-services/internal/credentials"
	"github.com/syncify/syncify/backend/go-services/internal/rooms"
	"github.com/syncify/syncify/backend/go-services/internal/spotify"
)

// remote refresh stub
type stubAccounts struct {
	resp *spotify.TokenResponse
	err  error
}

func (s *stubAccounts) Refresh(ctx context.Context, refreshToken string) (*spotify.TokenResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

// fake websocket peer
type fakePeer struct {
	id   string
	msgs [][]byte
}

func (f *fakePeer) ID() string { return f.id }
func (f *fakePeer) Send(msg []byte) bool {
	f.msgs = append(f.msgs, msg)
	return true
}

func playerRouter(h *PlayerHandler, sid string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("sessionID", sid)
		c.Next()
	})
	h.Register(r.Group("/"))
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCommand_NotAuthenticated(t *testing.T) {
	refresher := credentials.NewRefresher(&fakeCredRepo{}, &stubAccounts{})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient("http://localhost:0"), rooms.NewRegistry())
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/spotify/command", `{"action":"pause"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommand_PauseWithValidCredential(t *testing.T) {
	var gotPath, gotAuth string
	playerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer playerSrv.Close()

	repo := &fakeCredRepo{}
	_ = repo.Upsert(context.Background(), "sess-1", "at", "rt", time.Hour)
	refresher := credentials.NewRefresher(repo, &stubAccounts{})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient(playerSrv.URL), rooms.NewRegistry())
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/spotify/command", `{"action":"pause"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/v1/me/player/pause", gotPath)
	assert.Equal(t, "Bearer at", gotAuth)
}

func TestCommand_ExpiredCredentialRefreshedFirst(t *testing.T) {
	var gotAuth string
	playerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer playerSrv.Close()

	repo := &fakeCredRepo{}
	_ = repo.Upsert(context.Background(), "sess-1", "stale", "rt", 0)
	refresher := credentials.NewRefresher(repo, &stubAccounts{resp: &spotify.TokenResponse{AccessToken: "fresh", ExpiresIn: 3600}})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient(playerSrv.URL), rooms.NewRegistry())
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/spotify/command", `{"action":"pause"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer fresh", gotAuth)
}

func TestCommand_UnknownAction(t *testing.T) {
	repo := &fakeCredRepo{}
	_ = repo.Upsert(context.Background(), "sess-1", "at", "rt", time.Hour)
	refresher := credentials.NewRefresher(repo, &stubAccounts{})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient("http://localhost:0"), rooms.NewRegistry())
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/spotify/command", `{"action":"shuffle"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommand_ActuatorErrorSurfaced(t *testing.T) {
	playerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Device not found"}}`))
	}))
	defer playerSrv.Close()

	repo := &fakeCredRepo{}
	_ = repo.Upsert(context.Background(), "sess-1", "at", "rt", time.Hour)
	refresher := credentials.NewRefresher(repo, &stubAccounts{})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient(playerSrv.URL), rooms.NewRegistry())
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/spotify/command", `{"action":"pause"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	var got map[string]any
	_ = json.NewDecoder(w.Body).Decode(&got)
	assert.Equal(t, float64(http.StatusNotFound), got["status"])
	assert.Contains(t, got["body"], "Device not found")
}

func TestRoomCommand_FansOutToAllMembers(t *testing.T) {
	registry := rooms.NewRegistry()
	p1 := &fakePeer{id: "c1"}
	p2 := &fakePeer{id: "c2"}
	p3 := &fakePeer{id: "c3"}
	registry.Join(p1, "xyz", "Alice")
	registry.Join(p2, "xyz", "Bob")
	registry.Join(p3, "other", "Carol")

	refresher := credentials.NewRefresher(&fakeCredRepo{}, &stubAccounts{})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient("http://localhost:0"), registry)
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/room/xyz/command", `{"action":"pause"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, p1.msgs, 1)
	require.Len(t, p2.msgs, 1)
	require.Empty(t, p3.msgs)

	var env rooms.Envelope
	require.NoError(t, json.Unmarshal(p1.msgs[0], &env))
	assert.Equal(t, rooms.TypePlaybackCommand, env.Type)
	assert.Equal(t, "xyz", env.RoomID)
	assert.JSONEq(t, `{"action":"pause"}`, string(env.Payload))
}

func TestRoomCommand_RejectsInvalidBody(t *testing.T) {
	refresher := credentials.NewRefresher(&fakeCredRepo{}, &stubAccounts{})
	h := NewPlayerHandler(refresher, spotify.NewPlayerClient("http://localhost:0"), rooms.NewRegistry())
	r := playerRouter(h, "sess-1")

	w := postJSON(r, "/room/xyz/command", `not-json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
