package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pradeep0711/FIle-Uploader/internal/queue"
	"github.com/pradeep0711/FIle-Uploader/internal/records"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/config"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/server"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/db"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
	localstore "github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object/local"
	s3store "github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object/s3"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/telemetry"
	"github.com/pradeep0711/FIle-Uploader/internal/uploads"
)

// App holds the process-wide dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Location object.Location
	Policy   uploads.Policy
	Pipeline *uploads.Pipeline
	Records  records.Repo
	Queue    queue.Client
}

// Build prepares every dependency and the router. A missing object store
// configuration is not fatal: the upload endpoints answer 500 not configured.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Policy: uploads.NewPolicy(cfg.MaxFileSizeBytes(), cfg.AllowedMIME),
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Records = &records.PGRepo{DB: sqlDB}
	} else {
		app.Records = records.NewMemoryRepo()
	}

	store, presigner, loc, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store, app.Location = store, loc

	app.Queue, err = buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	keys := uploads.NewKeyGenerator(cfg.UploadKeyPrefix)
	if store != nil {
		deps := uploads.PipelineDeps{
			Store:     store,
			Policy:    app.Policy,
			Keys:      keys,
			Timeout:   cfg.UploadTimeout,
			SignedTTL: cfg.SignedURLTTL,
			Recorder:  records.NewRecorder(app.Records, loc.Bucket),
		}
		if presigner != nil {
			deps.Signer = presigner
		}
		if app.Queue != nil {
			deps.Notifier = queue.NewUploadNotifier(app.Queue, loc.Bucket)
		}
		if app.Pipeline, err = uploads.NewPipeline(deps); err != nil {
			return nil, err
		}
	} else {
		telemetry.Warn("bootstrap.store_not_configured", map[string]any{
			"object_store": cfg.ObjectStoreType,
		})
	}

	handlerDeps := uploads.HandlerDeps{
		Pipeline: app.Pipeline,
		Location: loc,
		Keys:     keys,
		PutTTL:   cfg.PresignPutTTL,
		GetTTL:   cfg.SignedURLTTL,
	}
	if presigner != nil {
		handlerDeps.Presigner = presigner
	}

	routerDeps := server.RouterDeps{
		Config:         cfg,
		UploadHandler:  uploads.NewHandler(handlerDeps),
		RecordsHandler: records.NewHandler(app.Records),
	}
	if local, ok := store.(*localstore.Store); ok {
		routerDeps.LocalFilesDir = local.Dir()
	}
	app.Router = server.NewRouter(routerDeps)

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"bucket":       loc.Bucket,
		"region":       loc.Region,
		"max_bytes":    app.Policy.MaxBytes(),
		"allowed_mime": allowedMIME(app.Policy),
		"ledger":       ledgerKind(sqlDB),
		"queue":        app.Queue != nil,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if config.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_unavailable", map[string]any{"err": err.Error()})
			return nil, nil
		}
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return sqlDB, nil
}

// buildStore returns a nil store when the selected backend is not configured.
func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, object.Presigner, object.Location, error) {
	if !cfg.StoreConfigured() {
		return nil, nil, object.Location{}, nil
	}

	if cfg.ObjectStoreType == "local" {
		urlBase := cfg.PublicURLBase
		if urlBase == "" {
			urlBase = "http://localhost" + server.Addr(cfg.Port) + "/files"
		}
		return localstore.New(cfg.LocalStoreDir, urlBase), nil, object.Location{}, nil
	}

	store, err := s3store.New(ctx, s3store.Config{
		Region:         cfg.AWSRegion,
		Bucket:         cfg.S3Bucket,
		Endpoint:       cfg.S3Endpoint,
		ForcePathStyle: cfg.S3ForcePathStyle,
		AccessKeyID:    cfg.AWSAccessKeyID,
		SecretKey:      cfg.AWSSecretAccessKey,
		KMSKeyID:       cfg.SSEKMSKeyID,
		PublicURLBase:  cfg.PublicURLBase,
		PartSize:       cfg.UploadPartSizeBytes(),
		Concurrency:    cfg.UploadConcurrency,
	})
	if err != nil {
		return nil, nil, object.Location{}, fmt.Errorf("build s3 store: %w", err)
	}
	return store, store, store.Location(), nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("build sqs client: %w", err)
	}
	return client, nil
}

func allowedMIME(p uploads.Policy) []string {
	rules := p.Rules()
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.String())
	}
	return out
}

func ledgerKind(sqlDB *sql.DB) string {
	if sqlDB != nil {
		return "postgres"
	}
	return "memory"
}

func isDevLike(env string) bool {
	switch env {
	case "dev", "local":
		return true
	default:
		return false
	}
}
