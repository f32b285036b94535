package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/concurrent"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/media"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/service"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/testutil"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/ratelimit"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/token"
)

// envelope mirrors response.Envelope with Data left raw for per-test decoding.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []domain.FieldError `json:"errors"`
}

type fakeStore struct {
	mu      sync.Mutex
	stored  int
	deleted []string
	failOn  int
	// gate, when set, holds every upload until it is closed
	gate chan struct{}
}

func (f *fakeStore) Store(_ context.Context, file io.Reader, kind media.Kind, owner string) (*media.StoredMedia, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored++
	if f.failOn > 0 && f.stored == f.failOn {
		return nil, media.ErrUnavailable
	}
	id := string(kind) + "/" + media.NewPublicID(owner)
	return &media.StoredMedia{URL: "https://media.test/" + id, PublicID: id, ResourceType: "image", Bytes: int64(len(data))}, nil
}

func (f *fakeStore) counts() (stored int, deleted []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored, append([]string(nil), f.deleted...)
}

func (f *fakeStore) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

type testServer struct {
	handler http.Handler
	db      *gorm.DB
	tokens  *token.Manager
	store   *fakeStore
	pool    *concurrent.WorkerPool
}

type serverConfig struct {
	auth    api.AuthHandlerConfig
	workers int
	queue   int
	store   *fakeStore
}

type serverOption func(*serverConfig)

func withAuthLimit(limit int) serverOption {
	return func(cfg *serverConfig) {
		limiter := ratelimit.NewFixedWindow(ratelimit.NewMemoryCounter(), "test:auth", limit, time.Minute)
		cfg.auth.RateLimit = middleware.RateLimit(limiter, "auth", logger.NewNop())
	}
}

func withUploadPool(workers, queue int) serverOption {
	return func(cfg *serverConfig) {
		cfg.workers, cfg.queue = workers, queue
	}
}

func withStore(store *fakeStore) serverOption {
	return func(cfg *serverConfig) {
		cfg.store = store
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	log := logger.NewNop()
	db := testutil.NewDB(t)
	tokens := token.NewManager("api-test-secret", time.Hour)
	auth := middleware.NewAuthenticator(tokens)
	cfg := serverConfig{
		auth:    api.AuthHandlerConfig{CookieTTL: time.Hour},
		workers: 2,
		queue:   16,
		store:   &fakeStore{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	store := cfg.store

	pool := concurrent.NewWorkerPool(cfg.workers, cfg.queue, log)
	pool.Start()
	t.Cleanup(pool.Stop)

	users := repository.NewUserRepository(db, log)
	categories := repository.NewCategoryRepository(db, log)
	products := repository.NewProductRepository(db, log)
	posts := repository.NewPostRepository(db, log)
	comments := repository.NewCommentRepository(db, log)

	handler := api.NewRouter(api.RouterConfig{CORSOrigins: []string{"http://localhost:3000"}}, log, nil,
		api.NewAuthHandler(service.NewAuthService(users, tokens, log), auth, cfg.auth, log),
		api.NewCategoryHandler(service.NewCategoryService(categories, log), auth, log),
		api.NewProductHandler(service.NewProductService(products, categories, log), auth, log),
		api.NewPostHandler(service.NewPostService(posts, comments, log), auth, log),
		api.NewUploadHandler(store, pool, auth, log),
	)
	return &testServer{handler: handler, db: db, tokens: tokens, store: store, pool: pool}
}

// tokenFor seeds a user with the given role and returns a bearer token for it.
func (s *testServer) tokenFor(t *testing.T, username string, role domain.Role) (string, *domain.User) {
	t.Helper()
	user := testutil.CreateUser(t, s.db, username, role)
	signed, err := s.tokens.Issue(user.ID, user.Email, user.Username, string(user.Role))
	require.NoError(t, err)
	return signed, user
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	env := decode(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, dst), string(env.Data))
	return env
}
