package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"

	"github.com/flokiorg/userhub/constants"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/utils"
)

type config struct {
	Env *AppConfig
}

// LoadEnv reads AppConfig from the environment.
func LoadEnv() (*AppConfig, error) {
	appConfig := &AppConfig{}
	err := envconfig.Process("", appConfig)
	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

func NewConfig(env *AppConfig) (*config, error) {
	cfg := &config{}
	err := cfg.init(env)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *config) init(env *AppConfig) error {
	cfg.Env = env

	if cfg.Env.Workdir == "" {
		cfg.Env.Workdir = cfg.GetDefaultWorkDir()
		logger.Logger.Info().Str("workdir", cfg.Env.Workdir).Msg("No workdir specified, using default")
	}

	cfg.Env.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.Env.StoreBackend))
	if cfg.Env.StoreBackend == "" {
		cfg.Env.StoreBackend = constants.STORE_BACKEND_SQLITE
	}
	if !slices.Contains(constants.GetStoreBackends(), cfg.Env.StoreBackend) {
		return fmt.Errorf("unsupported store backend %q", cfg.Env.StoreBackend)
	}

	if cfg.Env.UserApiURL == "" {
		cfg.Env.UserApiURL = constants.DEFAULT_USER_API_URL
	}
	if err := utils.ValidateHTTPURL(cfg.Env.UserApiURL); err != nil {
		return fmt.Errorf("invalid USER_API_URL: %w", err)
	}

	if cfg.Env.FetchTimeout <= 0 {
		cfg.Env.FetchTimeout = constants.DEFAULT_FETCH_TIMEOUT
	}

	return nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) GetUserApiURL() string {
	return cfg.Env.UserApiURL
}

func (cfg *config) GetFetchTimeout() time.Duration {
	return cfg.Env.FetchTimeout
}

func (cfg *config) GetStoreBackend() string {
	return cfg.Env.StoreBackend
}

func (cfg *config) GetDefaultWorkDir() string {
	return filepath.Join(xdg.DataHome, constants.APP_IDENTIFIER)
}
