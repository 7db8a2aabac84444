package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	googleauth "insights-backend/internal/auth"
	"insights-backend/internal/extract"
	"insights-backend/internal/insights"
	"insights-backend/internal/library"
	"insights-backend/internal/queue"
	sharedauth "insights-backend/internal/shared/auth"
	"insights-backend/internal/shared/config"
	"insights-backend/internal/shared/server"
	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/storage/db"
	"insights-backend/internal/shared/storage/object"
	gcsstore "insights-backend/internal/shared/storage/object/gcs"
	localstore "insights-backend/internal/shared/storage/object/local"
	s3store "insights-backend/internal/shared/storage/object/s3"
	"insights-backend/internal/shared/telemetry"
	"insights-backend/internal/sources"
	"insights-backend/internal/users"
	"insights-backend/internal/workflow"
)

// App holds the wired dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Queue       queue.Client
	Revocations *sharedauth.RevocationList

	InsightsRepo    insights.Repo
	SourcesRepo     sources.Repo
	UsersRepo       users.Repo
	LibraryRepo     library.Repo
	InsightsService *insights.Service
	SourcesService  *sources.Service
	LibraryService  *library.Service
	Sessions        *workflow.MemoryStore
	Controller      *workflow.Controller
	Sweeper         *workflow.Sweeper

	InsightsHandler *insights.Handler
	SourcesHandler  *sources.Handler
	LibraryHandler  *library.Handler
	UsersHandler    *users.Handler
	WorkflowHandler *workflow.Handler
	SessionHandler  *googleauth.SessionHandler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if cfg.IsDevLike() && strings.TrimSpace(cfg.LocalStoreDir) == "" {
		cfg.LocalStoreDir = "./data"
	}
	sharedauth.Configure(cfg.JWTSecret, cfg.Env)
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Store:       store,
		Queue:       queueClient,
		Revocations: sharedauth.NewRevocationList(nil),
	}
	buildServices(app)

	// Memory repos start empty, so dev gets the sample set. SEED_INSIGHTS
	// forces it for a database too.
	if (sqlDB == nil && cfg.IsDevLike()) || cfg.SeedInsights {
		if err := seedInsights(ctx, app.InsightsService); err != nil {
			return nil, err
		}
	}

	var health func(context.Context) error
	if sqlDB != nil {
		health = sqlDB.PingContext
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Revocations: app.Revocations,
		Limiter:     middleware.NewRateLimiter(nil),
		Health:      health,
		Handlers: []server.Routes{
			app.GoogleAuth,
			app.SessionHandler,
			app.InsightsHandler,
			app.SourcesHandler,
			app.LibraryHandler,
			app.UsersHandler,
			app.WorkflowHandler,
		},
	})
	return app, nil
}

// BuildRepos returns the insights service backed by Postgres when
// DATABASE_URL is set. The seed command uses it without the HTTP stack.
func BuildRepos(ctx context.Context, cfg config.Config) (*insights.Service, *sql.DB, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	var repo insights.Repo = insights.NewMemoryRepo()
	if sqlDB != nil {
		repo = &insights.PGRepo{DB: sqlDB}
	}
	return insights.NewService(repo), sqlDB, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Info("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required in %s", cfg.Env)
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if cfg.OnLambda() {
		sqlDB, err = db.LambdaPool(ctx, cfg.DatabaseURL, DBOptions(cfg, db.ProfileLambda))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, DBOptions(cfg, db.ProfileServer))
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// DBOptions applies the configured pool overrides to the defaults of p.
func DBOptions(cfg config.Config, p db.Profile) db.Options {
	return p.Defaults().Merge(db.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
		PingTimeout:     cfg.DB.PingTimeout,
	})
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			URLTTL:   cfg.SignedURLTTL,
		})
	case "gcs":
		return gcsstore.New(ctx, gcsstore.Options{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.GCSPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
			URLTTL:          cfg.SignedURLTTL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.SQSQueueURL == "" {
		return queue.LogClient{}, nil
	}
	c, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.InsightsRepo = &insights.PGRepo{DB: app.DB}
		app.SourcesRepo = &sources.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.LibraryRepo = &library.PGRepo{DB: app.DB}
	} else {
		app.InsightsRepo = insights.NewMemoryRepo()
		app.SourcesRepo = sources.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
		app.LibraryRepo = library.NewMemoryRepo()
	}
	userSvc := users.NewService(app.UsersRepo)

	app.InsightsService = insights.NewService(app.InsightsRepo)
	app.SourcesService = sources.NewService(app.SourcesRepo, app.InsightsService, app.Queue)
	app.LibraryService = library.NewService(app.LibraryRepo, app.InsightsService)

	storage := workflow.ObjectStorage{Store: app.Store, Prefix: app.Config.UploadPrefix}
	app.Controller = &workflow.Controller{
		Storage:   storage,
		Extractor: &extract.Pipeline{Store: app.Store},
		Publisher: app.SourcesService,
	}
	app.Sessions = workflow.NewMemoryStore(nil)
	app.Sweeper = &workflow.Sweeper{
		Store:   app.Sessions,
		Storage: storage,
		IdleTTL: app.Config.SessionIdleTTL,
	}

	sessionSvc := &googleauth.SessionService{Revocations: app.Revocations}
	app.SessionHandler = googleauth.NewSessionHandler(sessionSvc, app.Sessions)
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleOptions{
		ClientID:     app.Config.GoogleClientID,
		ClientSecret: app.Config.GoogleClientSecret,
		RedirectURL:  app.Config.GoogleRedirectURL,
		UIRedirect:   app.Config.UIRedirectURL,
		Users:        userSvc,
	})
	app.InsightsHandler = insights.NewHandler(app.InsightsService)
	app.InsightsHandler.Searches = app.LibraryService
	app.LibraryHandler = library.NewHandler(app.LibraryService)
	app.SourcesHandler = sources.NewHandler(app.SourcesService)
	app.UsersHandler = users.NewHandler(userSvc)
	app.WorkflowHandler = workflow.NewHandler(app.Controller, app.Sessions, sessionSvc, app.Config.MaxUploadBytes)
}

func seedInsights(ctx context.Context, svc *insights.Service) error {
	recs, err := insights.LoadSeed()
	if err != nil {
		return err
	}
	n, err := svc.Seed(ctx, recs)
	if err != nil {
		return eris.Wrap(err, "seed insights")
	}
	telemetry.Info("bootstrap.seeded", map[string]any{"insights": n})
	return nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
