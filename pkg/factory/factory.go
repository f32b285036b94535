package factory

import (
	"context"
	"net/http"
	"os"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/concurrent"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/config"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/database"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/media"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/service"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/cache"
	pkgdb "github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/database"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/ratelimit"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/redis"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/token"
)

type Factory interface {
	GetLogger() logger.Logger
	GetConfig() *config.Config
	GetConnectionManager() *pkgdb.ConnectionManager
	GetMigrationService() *database.MigrationService
	GetRedisClient() *redis.RedisClient
	GetCache() cache.Cache
	GetWarmUpManager() *cache.WarmUpManager
	GetUploadPool() *concurrent.WorkerPool
	GetMediaStore() media.Store

	GetAuthService() domain.AuthService
	GetCategoryService() domain.CategoryService
	GetProductService() domain.ProductService
	GetPostService() domain.PostService

	Router() http.Handler
	Close()
}

type AppFactory struct {
	config      *config.Config
	logger      logger.Logger
	conn        *pkgdb.ConnectionManager
	migrations  *database.MigrationService
	redisClient *redis.RedisClient
	cache       cache.Cache
	warmUp      *cache.WarmUpManager
	tokens      *token.Manager
	limiter     ratelimit.Limiter
	mediaStore  media.Store
	breaker     *media.BreakerStore
	uploadPool  *concurrent.WorkerPool

	userRepository     domain.UserRepository
	categoryRepository domain.CategoryRepository
	productRepository  domain.ProductRepository
	postRepository     domain.PostRepository
	commentRepository  domain.CommentRepository

	authService     domain.AuthService
	categoryService domain.CategoryService
	productService  domain.ProductService
	postService     domain.PostService
}

// NewFactory loads configuration and connects every backing service. Redis
// and the media host are optional: without them rate limits and caches stay
// in process and uploads answer 503.
func NewFactory(ctx context.Context) (Factory, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.LogLevel(cfg.LogLevel), os.Stdout, cfg.IsDevelopment())
	f, err := New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*AppFactory, error) {
	conn, err := pkgdb.NewConnectionManager(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	f := &AppFactory{
		config:     cfg,
		logger:     log,
		conn:       conn,
		migrations: database.NewMigrationService(conn.DB(), log),
		tokens:     token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn),
	}

	f.initRedis(ctx)
	if err := f.initMedia(); err != nil {
		f.Close()
		return nil, err
	}
	f.initRepositories()
	f.initServices()

	f.uploadPool = concurrent.NewWorkerPool(cfg.Upload.Workers, cfg.Upload.QueueSize, log)
	f.uploadPool.Start()

	return f, nil
}

func (f *AppFactory) initRedis(ctx context.Context) {
	var counter ratelimit.Counter
	if f.config.Redis.Addr != "" {
		client, err := redis.NewRedisClient(ctx, f.config.Redis.Addr, f.config.Redis.Password, f.config.Redis.DB)
		if err != nil {
			f.logger.Warn("Redis unavailable, using in-process cache and rate limits", map[string]interface{}{
				"addr":  f.config.Redis.Addr,
				"error": err.Error(),
			})
		} else {
			f.redisClient = client
		}
	}

	if f.redisClient != nil {
		f.cache = cache.NewRedisCache(f.redisClient.Client, f.logger, "soco")
		counter = f.redisClient
	} else {
		f.cache = cache.NewMemoryCache()
		counter = ratelimit.NewMemoryCounter()
	}
	f.limiter = ratelimit.NewFixedWindow(counter, "soco:ratelimit:auth", f.config.RateLimit.Requests, f.config.RateLimit.Window)
}

func (f *AppFactory) initMedia() error {
	if f.config.Cloudinary.URL == "" {
		f.logger.Warn("CLOUDINARY_URL not set, uploads are disabled", map[string]interface{}{})
		f.mediaStore = media.NewUnconfiguredStore()
		return nil
	}
	store, err := media.NewCloudinaryStore(f.config.Cloudinary.URL, f.config.Cloudinary.Folder, f.logger)
	if err != nil {
		return err
	}
	f.breaker = media.NewBreakerStore(store, f.logger)
	f.mediaStore = f.breaker
	return nil
}

func (f *AppFactory) initRepositories() {
	db := f.conn.DB()
	f.userRepository = repository.NewUserRepository(db, f.logger)
	f.categoryRepository = repository.NewCategoryRepository(db, f.logger)
	f.productRepository = repository.NewProductRepository(db, f.logger)
	f.postRepository = repository.NewPostRepository(db, f.logger)
	f.commentRepository = repository.NewCommentRepository(db, f.logger)
}

func (f *AppFactory) initServices() {
	f.authService = service.NewAuthService(f.userRepository, f.tokens, f.logger)

	baseCategoryService := service.NewCategoryService(f.categoryRepository, f.logger)
	f.categoryService = service.NewCachedCategoryService(baseCategoryService, f.cache, f.logger)

	f.productService = service.NewProductService(f.productRepository, f.categoryRepository, f.logger)
	f.postService = service.NewPostService(f.postRepository, f.commentRepository, f.logger)

	f.warmUp = cache.NewWarmUpManager(f.logger,
		cache.WarmUpTask{Name: "categories", Run: func(ctx context.Context) error {
			_, err := f.categoryService.GetCategories(ctx)
			return err
		}},
		cache.WarmUpTask{Name: "root_categories", Run: func(ctx context.Context) error {
			_, err := f.categoryService.GetRootCategories(ctx)
			return err
		}},
	)
}

// Router builds the HTTP handler tree over the factory's services.
func (f *AppFactory) Router() http.Handler {
	auth := middleware.NewAuthenticator(f.tokens)

	checks := []api.HealthCheck{
		{Name: "database", Required: true, Ping: f.conn.Ping, Stats: func() interface{} { return f.conn.GetStats() }},
		{Name: "cache", Ping: f.cache.Ping},
		{Name: "upload_pool", Stats: func() interface{} {
			return map[string]interface{}{
				"queue_length":   f.uploadPool.QueueLength(),
				"queue_capacity": f.uploadPool.QueueCapacity(),
				"jobs":           f.uploadPool.GetStats(),
			}
		}},
	}
	if f.breaker != nil {
		checks = append(checks, api.HealthCheck{Name: "media", Stats: func() interface{} {
			return map[string]interface{}{"circuit_breaker": f.breaker.State().String()}
		}})
	}

	return api.NewRouter(
		api.RouterConfig{
			CORSOrigins:    f.config.Server.CORSOrigins,
			RequestTimeout: f.config.Server.Timeout,
		},
		f.logger,
		api.NewHealthHandler(f.logger, checks...),
		api.NewAuthHandler(f.authService, auth, api.AuthHandlerConfig{
			CookieTTL:    f.config.Auth.JWTExpiresIn,
			CookieSecure: f.config.Auth.CookieSecure,
			RateLimit:    middleware.RateLimit(f.limiter, "auth", f.logger),
		}, f.logger),
		api.NewCategoryHandler(f.categoryService, auth, f.logger),
		api.NewProductHandler(f.productService, auth, f.logger),
		api.NewPostHandler(f.postService, auth, f.logger),
		api.NewUploadHandler(f.mediaStore, f.uploadPool, auth, f.logger),
	)
}

// Close stops the upload pool and releases connections. Safe to call on a
// partially built factory.
func (f *AppFactory) Close() {
	if f.uploadPool != nil {
		f.uploadPool.Stop()
	}
	if f.redisClient != nil {
		if err := f.redisClient.Close(); err != nil {
			f.logger.Warn("Failed to close redis", map[string]interface{}{"error": err.Error()})
		}
	}
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

func (f *AppFactory) GetLogger() logger.Logger {
	return f.logger
}

func (f *AppFactory) GetConfig() *config.Config {
	return f.config
}

func (f *AppFactory) GetConnectionManager() *pkgdb.ConnectionManager {
	return f.conn
}

func (f *AppFactory) GetMigrationService() *database.MigrationService {
	return f.migrations
}

func (f *AppFactory) GetRedisClient() *redis.RedisClient {
	return f.redisClient
}

func (f *AppFactory) GetCache() cache.Cache {
	return f.cache
}

func (f *AppFactory) GetWarmUpManager() *cache.WarmUpManager {
	return f.warmUp
}

func (f *AppFactory) GetUploadPool() *concurrent.WorkerPool {
	return f.uploadPool
}

func (f *AppFactory) GetMediaStore() media.Store {
	return f.mediaStore
}

func (f *AppFactory) GetAuthService() domain.AuthService {
	return f.authService
}

func (f *AppFactory) GetCategoryService() domain.CategoryService {
	return f.categoryService
}

func (f *AppFactory) GetProductService() domain.ProductService {
	return f.productService
}

func (f *AppFactory) GetPostService() domain.PostService {
	return f.postService
}
