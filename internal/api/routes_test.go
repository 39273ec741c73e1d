package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"letmeask/internal/auth"
	"letmeask/internal/realtime"
	"letmeask/internal/repository"
	"letmeask/internal/service"
)

type fakeOAuth struct {
	user *auth.ExternalUser
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*auth.ExternalUser, error) {
	if code != "good-code" {
		return nil, errors.New("invalid_grant")
	}
	return f.user, nil
}

type testEnv struct {
	router   *gin.Engine
	services *service.Services
	issuer   *auth.TokenIssuer
	oauth    *fakeOAuth
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	services := service.NewServices(repository.NewMemoryRepositories(), logger)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	oauth := &fakeOAuth{user: &auth.ExternalUser{UID: "uid-ana", DisplayName: "Ana", PhotoURL: "ana.png"}}

	token, err := issuer.GenerateToken(auth.Session{ID: "uid-ana", Name: "Ana", Avatar: "ana.png"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	router := NewRouter(Dependencies{
		Services: services,
		Issuer:   issuer,
		OAuth:    oauth,
		Logger:   logger,
	})
	return &testEnv{router: router, services: services, issuer: issuer, oauth: oauth, token: token}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createRoom(t *testing.T, title string) realtime.Snapshot {
	t.Helper()
	w := e.do(http.MethodPost, "/api/rooms", e.token, map[string]string{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var snap realtime.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	return snap
}

func TestHealthAndNoRoute(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/health", "", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodGet, "/nowhere", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRoomRoutes(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creating a room requires a session", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/rooms", "", map[string]string{"title": "Nope"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	room := env.createRoom(t, "Go Q&A")
	if room.AuthorID != "uid-ana" {
		t.Fatalf("expected author uid-ana, got %q", room.AuthorID)
	}

	t.Run("unknown room", func(t *testing.T) {
		if w := env.do(http.MethodGet, "/api/rooms/missing", "", nil); w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("anonymous question is rejected", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/rooms/"+room.RoomID+"/questions", "", map[string]string{"content": "hi"})
		if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "You must be logged in") {
			t.Fatalf("expected 401 with login message, got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("blank question is rejected", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/rooms/"+room.RoomID+"/questions", env.token, map[string]string{"content": "   "})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("question author comes from the session", func(t *testing.T) {
		body := map[string]any{
			"content":       "What time?",
			"author":        map[string]string{"name": "Mallory", "avatar": "m.png"},
			"isHighlighted": true,
		}
		w := env.do(http.MethodPost, "/api/rooms/"+room.RoomID+"/questions", env.token, body)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
		}
		var created struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.Name == "" {
			t.Fatalf("expected generated key, got %s", w.Body.String())
		}

		w = env.do(http.MethodGet, "/api/rooms/"+room.RoomID, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var snap realtime.Snapshot
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		rec, ok := snap.Question(created.Name)
		if !ok {
			t.Fatalf("question %s missing from %s", created.Name, w.Body.String())
		}
		want := realtime.QuestionRecord{Content: "What time?", Author: realtime.Author{Name: "Ana", Avatar: "ana.png"}}
		if rec != want {
			t.Fatalf("expected %+v, got %+v", want, rec)
		}
	})
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)

	t.Run("login rejects non-loopback redirect", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/auth/google/login?redirect_uri="+url.QueryEscape("http://evil.example.com/cb"), "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	redirect := "http://127.0.0.1:4567/callback"
	w := env.do(http.MethodGet, "/api/auth/google/login?redirect_uri="+url.QueryEscape(redirect), "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := location.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state in %s", location)
	}

	t.Run("callback rejects tampered state", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/auth/google/callback?code=good-code&state=bogus", "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	jsonState, err := env.issuer.SignState("")
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}

	t.Run("callback rejects failed exchange", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/auth/google/callback?code=bad&state="+url.QueryEscape(jsonState), "", nil)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}

		w = env.do(http.MethodGet, "/api/auth/google/callback?code=bad&state="+url.QueryEscape(state), "", nil)
		if w.Code != http.StatusFound {
			t.Fatalf("expected 302 back to the client, got %d", w.Code)
		}
		target, _ := url.Parse(w.Header().Get("Location"))
		if target.Query().Get("error") == "" || target.Query().Get("token") != "" {
			t.Fatalf("expected error without token, got %s", target)
		}
	})

	t.Run("callback without redirect returns JSON", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/auth/google/callback?code=good-code&state="+url.QueryEscape(jsonState), "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var body struct {
			Token string       `json:"token"`
			User  auth.Session `json:"user"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Token == "" {
			t.Fatalf("expected token in %s", w.Body.String())
		}
		if body.User.Name != "Ana" {
			t.Fatalf("unexpected user %+v", body.User)
		}
	})

	t.Run("callback redirects with a usable token", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/auth/google/callback?code=good-code&state="+url.QueryEscape(state), "", nil)
		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d (%s)", w.Code, w.Body.String())
		}
		target, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parse redirect: %v", err)
		}
		if target.Host != "127.0.0.1:4567" || target.Path != "/callback" {
			t.Fatalf("unexpected redirect target %s", target)
		}
		token := target.Query().Get("token")

		me := env.do(http.MethodGet, "/api/auth/me", token, nil)
		if me.Code != http.StatusOK {
			t.Fatalf("expected 200 from /me, got %d", me.Code)
		}
		var session auth.Session
		if err := json.Unmarshal(me.Body.Bytes(), &session); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		if session != (auth.Session{ID: "uid-ana", Name: "Ana", Avatar: "ana.png"}) {
			t.Fatalf("unexpected session %+v", session)
		}

		if _, err := env.services.User.GetUser(context.Background(), "uid-ana"); err != nil {
			t.Fatalf("expected user to be recorded: %v", err)
		}
	})

	t.Run("incomplete profile issues no token", func(t *testing.T) {
		env.oauth.user = &auth.ExternalUser{UID: "uid-x", DisplayName: "No Photo"}
		w := env.do(http.MethodGet, "/api/auth/google/callback?code=good-code&state="+url.QueryEscape(jsonState), "", nil)
		if w.Code != http.StatusBadGateway || strings.Contains(w.Body.String(), "token") {
			t.Fatalf("expected 502 without token, got %d %s", w.Code, w.Body.String())
		}
		if _, err := env.services.User.GetUser(context.Background(), "uid-x"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("incomplete profile must not be recorded, got %v", err)
		}
	})
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, "Live")

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/rooms/" + room.RoomID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() realtime.Snapshot {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap realtime.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		return snap
	}

	initial := read()
	if initial.Title != "Live" || initial.QuestionCount() != 0 {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	w := env.do(http.MethodPost, "/api/rooms/"+room.RoomID+"/questions", env.token, map[string]string{"content": "First!"})
	if w.Code != http.StatusCreated {
		t.Fatalf("push: expected 201, got %d", w.Code)
	}

	next := read()
	if next.QuestionCount() != 1 || next.Entries()[0].Record.Content != "First!" {
		t.Fatalf("unexpected snapshot after push %+v", next)
	}

	t.Run("unknown room is rejected before upgrade", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/rooms/missing/ws", nil)
		if err == nil {
			t.Fatal("expected dial error")
		}
		if resp == nil || resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 response, got %v", resp)
		}
	})
}
