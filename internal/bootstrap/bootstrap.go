package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/musicschool/internal/app/auth"
	appControllers "github.com/yigit/musicschool/internal/app/controllers"
	appMigrations "github.com/yigit/musicschool/internal/app/migrations"
	appRepos "github.com/yigit/musicschool/internal/app/repositories"
	appRoutes "github.com/yigit/musicschool/internal/app/routes"
	appServices "github.com/yigit/musicschool/internal/app/services"
	"github.com/yigit/musicschool/internal/config"
	"github.com/yigit/musicschool/internal/db"
	appMiddleware "github.com/yigit/musicschool/internal/middleware"
	pkgAuth "github.com/yigit/musicschool/internal/pkg/auth"
	"github.com/yigit/musicschool/internal/pkg/events"
	"github.com/yigit/musicschool/internal/pkg/helpers"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
	"github.com/yigit/musicschool/internal/pkg/kvstore/memstore"
	"github.com/yigit/musicschool/internal/pkg/kvstore/postgreskv"
	kvredis "github.com/yigit/musicschool/internal/pkg/kvstore/redis"
	"github.com/yigit/musicschool/internal/pkg/kvstore/storelogger"
	"github.com/yigit/musicschool/internal/pkg/logger"
	"github.com/yigit/musicschool/internal/pkg/websocket"
	"github.com/yigit/musicschool/internal/seed"
)

// DefaultConfigPath is where LoadConfigAndSetupLogger looks by default
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Infrastructure holds the connections shared by every component
type Infrastructure struct {
	DB    *db.PostgresDB // nil unless a component needs postgres
	Store kvstore.Store
	Bus   events.Bus
}

// Close releases the event bus, the key/value store and the pool, in that
// order. The redis bus shares the redis store's connection.
func (i *Infrastructure) Close() error {
	var errs []error
	if i.Bus != nil {
		errs = append(errs, i.Bus.Close())
	}
	if i.Store != nil {
		errs = append(errs, i.Store.Close())
	}
	if i.DB != nil {
		i.DB.Close()
	}
	return errors.Join(errs...)
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos        *appRepos.Repositories
	Entitlements appServices.EntitlementStore
	Policy       *appAuth.VideoAccessPolicy
	JWTService   *pkgAuth.JWTService

	StudentService *appServices.StudentService
	AuthService    *appServices.AuthService
	CatalogService *appServices.CatalogService
	StatusService  *appServices.StatusService

	AuthController        *appControllers.AuthController
	StudentController     *appControllers.StudentController
	EntitlementController *appControllers.EntitlementController
	CatalogController     *appControllers.CatalogController
	StatusController      *appControllers.StatusController
	AuthMiddleware        *appMiddleware.AuthMiddleware

	Hub       *websocket.Hub
	WSHandler *websocket.Handler

	Infra  *Infrastructure
	Logger zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: logger.IsPretty(cfg.Logging.Format),
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupInfrastructure connects to postgres (when needed), runs migrations,
// and opens the key/value backend and the event bus.
func SetupInfrastructure(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}

	if cfg.NeedsPostgres() {
		database, err := SetupDatabase(ctx, cfg, lgr)
		if err != nil {
			return nil, err
		}
		infra.DB = database
	}

	store, err := openStore(ctx, cfg, infra, lgr)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Store = store

	bus, err := openBus(cfg, store, lgr)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Bus = bus

	return infra, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := RunMigrations(ctx, database, lgr); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// RunMigrations applies the embedded schema migrations
func RunMigrations(ctx context.Context, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrator, err := appMigrations.NewMigrator(database.Pool, lgr)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, infra *Infrastructure, lgr zerolog.Logger) (kvstore.Store, error) {
	var store kvstore.Store

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		lgr.Warn().Msg("Using in-memory entitlement storage; data is lost on restart")
		store = memstore.New()

	case config.BackendRedis:
		client, err := kvredis.OpenClient(ctx, kvredis.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: cfg.Redis.Namespace,
		})
		if err != nil {
			lgr.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
			return nil, err
		}
		store = client

	case config.BackendPostgres:
		if infra.DB == nil {
			return nil, fmt.Errorf("storage backend %q requires a database connection", cfg.Storage.Backend)
		}
		store = postgreskv.New(infra.DB.Pool)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	lgr.Info().Str("backend", cfg.Storage.Backend).Msg("Entitlement storage ready")

	if cfg.Storage.LogCalls {
		store = storelogger.New(lgr, store)
	}
	return store, nil
}

// openBus shares the redis connection when the backend is redis, so change
// events reach every instance; otherwise events stay in process.
func openBus(cfg *config.Config, store kvstore.Store, lgr zerolog.Logger) (events.Bus, error) {
	if raw, ok := unwrapRedis(store); ok {
		return events.NewRedisBus(lgr, raw.Raw(), cfg.Redis.EventsChannel)
	}
	return events.NewLocalBus(), nil
}

func unwrapRedis(store kvstore.Store) (*kvredis.Client, bool) {
	if logged, ok := store.(*storelogger.Logger); ok {
		store = logged.Unwrap()
	}
	client, ok := store.(*kvredis.Client)
	return client, ok
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, infra *Infrastructure, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Infra: infra, Logger: lgr}

	var err error
	deps.Repos, err = appRepos.NewRepositories(cfg.Directory.Driver, infra.poolOrNil(), infra.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	deps.Entitlements = appServices.NewEntitlementStore(
		infra.Store,
		deps.Repos.StudentRepository,
		infra.Bus,
		appServices.EntitlementOptions{
			CallTimeout: cfg.StorageCallTimeout(),
			Parallelism: cfg.Storage.Parallelism,
		},
		lgr,
	)
	deps.Policy = appAuth.NewVideoAccessPolicy(deps.Entitlements)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	// Initialize services
	deps.StudentService = appServices.NewStudentService(deps.Repos.StudentRepository, deps.Entitlements, lgr)
	deps.AuthService = appServices.NewAuthService(deps.Repos.StudentRepository, deps.Policy, deps.JWTService, lgr)
	deps.CatalogService = appServices.NewCatalogService(deps.Entitlements, deps.Policy, deps.Repos.VideoLinkRepository, lgr)
	deps.StatusService = appServices.NewStatusService(infra.Store, cfg.Storage.Backend, cfg.Directory.Driver, cfg.StorageCallTimeout())

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.StudentRepository)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.StudentController = appControllers.NewStudentController(deps.StudentService)
	deps.EntitlementController = appControllers.NewEntitlementController(deps.Entitlements, lgr)
	deps.CatalogController = appControllers.NewCatalogController(deps.CatalogService)
	deps.StatusController = appControllers.NewStatusController(deps.StatusService)

	deps.Hub = websocket.NewHub(lgr)
	deps.WSHandler = websocket.NewHandler(deps.Hub, lgr)

	return deps, nil
}

func (i *Infrastructure) poolOrNil() *pgxpool.Pool {
	if i.DB == nil {
		return nil
	}
	return i.DB.Pool
}

// SeedDefaultData creates the configured admin account
func SeedDefaultData(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	return seed.CreateDefaultData(ctx, deps.StudentService, seed.AdminAccount{
		Login:    cfg.Admin.Login,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}, deps.Logger)
}

// StartBackground runs the websocket hub and subscribes it to the event bus.
// Both stop when ctx is done.
func StartBackground(ctx context.Context, deps *Dependencies) error {
	go deps.Hub.Run(ctx)

	if err := websocket.Forward(ctx, deps.Infra.Bus, deps.Hub); err != nil {
		return fmt.Errorf("failed to subscribe websocket hub to events: %w", err)
	}
	return nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(), appMiddleware.CORS(cfg.Server.CORSOrigins))

	appRoutes.SetupSwagger(router)

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.StudentController,
		deps.EntitlementController,
		deps.CatalogController,
		deps.StatusController,
		deps.WSHandler,
		deps.AuthMiddleware,
	)

	return router, nil
}
