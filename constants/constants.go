package constants

import "time"

// shared constants used by multiple packages

const (
	APP_IDENTIFIER = "userhub"
	APP_USER_AGENT = "userhub"
)

const (
	STORE_BACKEND_SQLITE = "sqlite"
	STORE_BACKEND_BOLT   = "bolt"
	STORE_BACKEND_MEMORY = "memory"
)

func GetStoreBackends() []string {
	return []string{
		STORE_BACKEND_SQLITE,
		STORE_BACKEND_BOLT,
		STORE_BACKEND_MEMORY,
	}
}

const (
	DEFAULT_USER_API_URL  = "https://randomuser.me/api/"
	DEFAULT_FETCH_TIMEOUT = 10 * time.Second
	BOLT_DB_FILENAME      = "userhub.bolt"
)

// key prefix for values persisted on behalf of HTTP clients
const PREFERENCES_KEY_PREFIX = "preferences."

const LOG_TAIL_MAX_LEN = 64 * 1024

// the upstream user API wraps its records in this field
const ENVELOPE_RESULTS_FIELD = "results"
