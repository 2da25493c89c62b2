package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/flokiorg/userhub/config"
	"github.com/flokiorg/userhub/constants"
	"github.com/flokiorg/userhub/db"
	"github.com/flokiorg/userhub/kvstore"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/pkg/version"
)

type service struct {
	cfg   config.Config
	db    *gorm.DB
	store kvstore.Store
	bolt  *kvstore.BoltStore
	ctx   context.Context
}

func NewService(ctx context.Context) (*service, error) {
	// Load config from environment variables / .env file
	godotenv.Load(".env")
	appConfig, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)
	logger.Logger.Info().Msg("Userhub " + version.Tag)

	cfg, err := config.NewConfig(appConfig)
	if err != nil {
		return nil, err
	}

	// make sure workdir exists
	err = os.MkdirAll(appConfig.Workdir, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create workdir: %w", err)
	}

	if appConfig.LogToFile {
		err = logger.AddFileLogger(appConfig.Workdir)
		if err != nil {
			return nil, err
		}
	}

	svc := &service{
		cfg: cfg,
		ctx: ctx,
	}

	err = svc.openStore()
	if err != nil {
		return nil, err
	}

	logger.Logger.Info().
		Str("store_backend", cfg.GetStoreBackend()).
		Str("workdir", appConfig.Workdir).
		Msg("Service started")

	return svc, nil
}

func (svc *service) openStore() error {
	env := svc.cfg.GetEnv()

	switch svc.cfg.GetStoreBackend() {
	case constants.STORE_BACKEND_MEMORY:
		logger.Logger.Warn().Msg("Using in-memory store, values will not survive a restart")
		svc.store = kvstore.NewMemoryStore()
	case constants.STORE_BACKEND_BOLT:
		boltStore, err := kvstore.NewBoltStore(filepath.Join(env.Workdir, constants.BOLT_DB_FILENAME))
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to open bolt store")
			return err
		}
		svc.bolt = boltStore
		svc.store = boltStore
	default:
		gormDB, err := db.NewDB(resolveDatabaseUri(env.DatabaseUri, env.Workdir), env.LogDBQueries)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to open database")
			return err
		}
		svc.db = gormDB
		svc.store = kvstore.NewGormStore(gormDB)
	}
	return nil
}

// resolveDatabaseUri leaves URIs and paths unchanged and places a bare
// filename inside the workdir.
func resolveDatabaseUri(databaseUri string, workdir string) string {
	if strings.HasPrefix(databaseUri, "file:") {
		return databaseUri
	}
	databasePath, _ := filepath.Split(databaseUri)
	if databasePath == "" {
		return filepath.Join(workdir, databaseUri)
	}
	return databaseUri
}

func (svc *service) Shutdown() {
	if svc.db != nil {
		if err := db.Stop(svc.db); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to stop database")
		}
	}
	if svc.bolt != nil {
		if err := svc.bolt.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close bolt store")
		}
	}
}

func (svc *service) GetConfig() config.Config {
	return svc.cfg
}

func (svc *service) GetStore() kvstore.Store {
	return svc.store
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}
