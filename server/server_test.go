package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"musicshare/cache"
	"musicshare/core/account"
	"musicshare/core/apperr"
	"musicshare/core/auth"
	"musicshare/core/catalog"
	"musicshare/internal/testdb"
	"musicshare/model"
	"musicshare/repository"
	"musicshare/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type seekCloser struct{ *bytes.Reader }

func (seekCloser) Close() error { return nil }

// memStore is an in-memory storage.MediaStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (storage.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return storage.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: contentType}, nil
}

func (m *memStore) Get(_ context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &storage.Object{
		ReadCloser: seekCloser{bytes.NewReader(b)},
		ObjectInfo: storage.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: m.types[key], LastModified: time.Now()},
	}, nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for k, b := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(b))})
		}
	}
	return out, nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type testServer struct {
	handler  http.Handler
	accounts *account.Service
}

func newTestServer(t *testing.T, tokenOpts []auth.TokenOption, opts ...HandlerOption) *testServer {
	t.Helper()
	gdb := testdb.Open(t)
	users := repository.NewGormUserRepository(gdb)
	playlists := repository.NewGormPlaylistRepository(gdb)
	accounts := account.NewService(users, playlists, bcrypt.MinCost)
	tokens, err := auth.NewTokenService([]byte("test-secret"), 0, tokenOpts...)
	require.NoError(t, err)

	h := NewAPIHandler(
		accounts,
		catalog.NewService(repository.NewGormAuthorRepository(gdb), repository.NewGormTrackRepository(gdb), playlists),
		tokens,
		users,
		opts...,
	)
	return &testServer{handler: NewHTTPHandler(h), accounts: accounts}
}

type call struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	token       string // sent as Bearer header
	cookie      *http.Cookie
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(c.method, c.path, c.body)
	if c.contentType != "" {
		req.Header.Set("Content-Type", c.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func form(username, password string) io.Reader {
	return strings.NewReader(url.Values{"username": {username}, "password": {password}}.Encode())
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func (s *testServer) register(t *testing.T, username, password string) *httptest.ResponseRecorder {
	return s.do(t, call{method: http.MethodPost, path: "/register", body: form(username, password), contentType: "application/x-www-form-urlencoded"})
}

// login returns the bearer token and the session cookie.
func (s *testServer) login(t *testing.T, username, password string) (string, *http.Cookie) {
	t.Helper()
	rec := s.do(t, call{method: http.MethodPost, path: "/token", body: form(username, password), contentType: "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, resp.AccessToken, cookie.Value)
	return resp.AccessToken, cookie
}

func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	_, err := s.accounts.SeedAdmin(context.Background(), "root", "toor")
	require.NoError(t, err)
	token, _ := s.login(t, "root", "toor")
	return token
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestAliceScenario(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.admin(t)

	rec := s.register(t, "alice", "pw1")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
	_, aliceCookie := s.login(t, "alice", "pw1")

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/", token: adminToken,
		body: jsonBody(t, map[string]string{"name": "A", "alias": "a1"}), contentType: "application/json"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/a1/tracks/", token: adminToken,
		body: jsonBody(t, model.TrackInput{Title: "T", Alias: "t1", TrackURL: "t1.mp3"}), contentType: "application/json"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: "/playlists/", cookie: aliceCookie,
		body: jsonBody(t, model.PlaylistInput{Title: "P", Alias: "p1"}), contentType: "application/json"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: "/playlists/p1/tracks/t1", cookie: aliceCookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/playlists/p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var p1 model.PlaylistWithTracks
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p1))
	assert.Equal(t, "alice", p1.Creator)
	require.Len(t, p1.Tracks, 1)
	assert.Equal(t, "t1", p1.Tracks[0].Alias)
	assert.Equal(t, "/audio/t1.mp3", p1.Tracks[0].AudioPath)

	rec = s.do(t, call{method: http.MethodGet, path: "/account", cookie: aliceCookie})
	require.Equal(t, http.StatusOK, rec.Code)
	var acct AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	assert.Equal(t, "alice", acct.Username)
	require.Len(t, acct.Playlists, 1)
	assert.Equal(t, "p1", acct.Playlists[0].Alias)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusSeeOther, s.register(t, "alice", "pw1").Code)

	wrong := s.do(t, call{method: http.MethodPost, path: "/token", body: form("alice", "nope"), contentType: "application/x-www-form-urlencoded"})
	unknown := s.do(t, call{method: http.MethodPost, path: "/token", body: form("mallory", "pw1"), contentType: "application/x-www-form-urlencoded"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	missing := s.do(t, call{method: http.MethodPost, path: "/token", body: form("alice", ""), contentType: "application/x-www-form-urlencoded"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestLoginAcceptsJSON(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusSeeOther, s.register(t, "alice", "pw1").Code)

	rec := s.do(t, call{method: http.MethodPost, path: "/token", contentType: "application/json",
		body: jsonBody(t, map[string]string{"username": "alice", "password": "pw1"})})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterConflict(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusSeeOther, s.register(t, "alice", "pw1").Code)

	rec := s.register(t, "alice", "pw2")
	assert.Equal(t, http.StatusConflict, rec.Code)
	s.login(t, "alice", "pw1")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, call{method: http.MethodGet, path: "/account"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/account", token: "not.a.token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.ErrInvalidToken.Error(), errorMessage(t, rec))

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/",
		body: jsonBody(t, map[string]string{"name": "A", "alias": "a1"}), contentType: "application/json"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenForDeletedSubjectIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	tokens, err := auth.NewTokenService([]byte("test-secret"), 0)
	require.NoError(t, err)
	token, _, err := tokens.Issue(context.Background(), auth.Subject{UserID: 42, Username: "ghost"})
	require.NoError(t, err)

	rec := s.do(t, call{method: http.MethodGet, path: "/account", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.admin(t)
	require.Equal(t, http.StatusSeeOther, s.register(t, "bob", "pw").Code)
	bobToken, _ := s.login(t, "bob", "pw")

	rec := s.do(t, call{method: http.MethodPost, path: "/music/authors/", token: bobToken,
		body: jsonBody(t, map[string]string{"name": "A", "alias": "a1"}), contentType: "application/json"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/", token: adminToken,
		body: jsonBody(t, map[string]string{"name": "A", "alias": "a1"}), contentType: "application/json"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/", token: adminToken,
		body: jsonBody(t, map[string]string{"name": "A", "alias": "a1"}), contentType: "application/json"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/a1/tracks/", token: adminToken,
		body: jsonBody(t, model.TrackInput{Title: "S", Alias: "song", TrackURL: "song.exe"}), contentType: "application/json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/music/authors/nobody/tracks/", token: adminToken,
		body: jsonBody(t, model.TrackInput{Title: "S", Alias: "song", TrackURL: "song.mp3"}), contentType: "application/json"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{method: http.MethodDelete, path: "/music/authors/a1", token: bobToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, call{method: http.MethodDelete, path: "/music/authors/a1", token: adminToken})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, call{method: http.MethodDelete, path: "/music/authors/a1", token: adminToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, call{method: http.MethodDelete, path: "/music/tracks/song", token: adminToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaylistDeleteForbidden(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusSeeOther, s.register(t, "alice", "pw1").Code)
	require.Equal(t, http.StatusSeeOther, s.register(t, "bob", "pw2").Code)
	_, alice := s.login(t, "alice", "pw1")
	_, bob := s.login(t, "bob", "pw2")

	rec := s.do(t, call{method: http.MethodPost, path: "/playlists/", cookie: alice,
		body: jsonBody(t, model.PlaylistInput{Title: "Mix", Alias: "mix"}), contentType: "application/json"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodDelete, path: "/music/playlists/mix", cookie: bob})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusOK, s.do(t, call{method: http.MethodGet, path: "/playlists/mix"}).Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/playlists/mix/tracks/none", cookie: bob})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, call{method: http.MethodPost, path: "/playlists/mix/tracks/none", cookie: alice})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{method: http.MethodDelete, path: "/music/playlists/mix", cookie: alice})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, call{method: http.MethodGet, path: "/playlists/mix"}).Code)
}

func TestPublicListings(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.admin(t)
	for _, alias := range []string{"abba", "queen"} {
		rec := s.do(t, call{method: http.MethodPost, path: "/music/authors/", token: adminToken,
			body: jsonBody(t, map[string]string{"name": alias, "alias": alias}), contentType: "application/json"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, call{method: http.MethodGet, path: "/?skip=1&limit=5"})
	require.Equal(t, http.StatusOK, rec.Code)
	var authors []model.Author
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authors))
	require.Len(t, authors, 1)
	assert.Equal(t, "queen", authors[0].Alias)

	rec = s.do(t, call{method: http.MethodGet, path: "/authors/queen"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, call{method: http.MethodGet, path: "/tracks/all"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	rec = s.do(t, call{method: http.MethodGet, path: "/playlists/all"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/tracks/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, call{method: http.MethodGet, path: "/authors/" + strings.Repeat("x", catalog.MaxAliasLen+1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, call{method: http.MethodGet, path: "/no/such/route"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	s := newTestServer(t, []auth.TokenOption{auth.WithRevoker(cache.NewRevocationList(client))})
	require.Equal(t, http.StatusSeeOther, s.register(t, "alice", "pw1").Code)
	token, _ := s.login(t, "alice", "pw1")

	require.Equal(t, http.StatusOK, s.do(t, call{method: http.MethodGet, path: "/account", token: token}).Code)

	rec := s.do(t, call{method: http.MethodPost, path: "/logout", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked": true}`, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/account", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMediaUploadAndServe(t *testing.T) {
	store := newMemStore()
	s := newTestServer(t, nil, WithMediaStore(store))
	adminToken := s.admin(t)
	require.Equal(t, http.StatusSeeOther, s.register(t, "bob", "pw").Code)
	bobToken, _ := s.login(t, "bob", "pw")

	body, ct := multipartBody(t, map[string]string{"kind": "audio"}, "t1.mp3", []byte("ID3-audio"))
	rec := s.do(t, call{method: http.MethodPost, path: "/music/media", token: bobToken, body: body, contentType: ct})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body, ct = multipartBody(t, map[string]string{"kind": "audio"}, "t1.mp3", []byte("ID3-audio"))
	rec = s.do(t, call{method: http.MethodPost, path: "/music/media", token: adminToken, body: body, contentType: ct})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("ID3-audio"), store.objects["audio/t1.mp3"])

	body, ct = multipartBody(t, map[string]string{"kind": "audio"}, "evil.exe", []byte("MZ"))
	rec = s.do(t, call{method: http.MethodPost, path: "/music/media", token: adminToken, body: body, contentType: ct})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/audio/t1.mp3"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ID3-audio", rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))

	rec = s.do(t, call{method: http.MethodGet, path: "/img/t1.mp3"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMediaDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, call{method: http.MethodGet, path: "/audio/t1.mp3"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, call{method: http.MethodOptions, path: "/playlists/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
