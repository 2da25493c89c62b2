package config

import "time"

type AppConfig struct {
	Workdir      string        `envconfig:"WORK_DIR"`
	Port         string        `envconfig:"PORT" default:"1610"`
	DatabaseUri  string        `envconfig:"DATABASE_URI" default:"userhub.db"`
	StoreBackend string        `envconfig:"STORE_BACKEND" default:"sqlite"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"4"`
	LogToFile    bool          `envconfig:"LOG_TO_FILE" default:"true"`
	LogDBQueries bool          `envconfig:"LOG_DB_QUERIES" default:"false"`
	UserApiURL   string        `envconfig:"USER_API_URL" default:"https://randomuser.me/api/"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
}

type Config interface {
	GetEnv() *AppConfig
	GetUserApiURL() string
	GetFetchTimeout() time.Duration
	GetStoreBackend() string
	GetDefaultWorkDir() string
}
