package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/flokiorg/userhub/config"
	"github.com/flokiorg/userhub/constants"
	"github.com/flokiorg/userhub/fetcher"
	"github.com/flokiorg/userhub/kvstore"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/persisted"
	"github.com/flokiorg/userhub/pkg/version"
	"github.com/flokiorg/userhub/utils"
)

var preferenceKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

type HttpService struct {
	cfg        config.Config
	store      kvstore.Store
	httpClient *http.Client

	preferencesMu sync.Mutex
	preferences   map[string]*persisted.PersistedValue[any]
}

func NewHttpService(cfg config.Config, store kvstore.Store) *HttpService {
	return &HttpService{
		cfg:   cfg,
		store: store,
		httpClient: &http.Client{
			Timeout: cfg.GetFetchTimeout(),
		},
		preferences: map[string]*persisted.PersistedValue[any]{},
	}
}

func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogHost:      true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.HttpLogger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Str("user_agent", values.UserAgent).
				Str("host", values.Host).
				Str("request_id", values.RequestID).
				Msg("handled API request")
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/api/home", httpSvc.homeHandler)
	e.GET("/api/about", httpSvc.aboutHandler)
	e.GET("/api/user/:id", httpSvc.userHandler)
	e.GET("/api/log", httpSvc.getLogOutputHandler)

	e.GET("/api/preferences/:key", httpSvc.getPreferenceHandler)
	e.PUT("/api/preferences/:key", httpSvc.setPreferenceHandler)
	e.DELETE("/api/preferences/:key", httpSvc.clearPreferenceHandler)

	e.RouteNotFound("/*", httpSvc.notFoundHandler)
}

func (httpSvc *HttpService) homeHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, InfoResponse{
		Name:      constants.APP_IDENTIFIER,
		Version:   version.Tag,
		IsRelease: version.IsRelease(version.Tag),
	})
}

func (httpSvc *HttpService) aboutHandler(c echo.Context) error {
	apiRoutes := utils.Filter(c.Echo().Routes(), func(route *echo.Route) bool {
		return strings.HasPrefix(route.Path, "/api/")
	})

	routes := make([]string, 0, len(apiRoutes))
	for _, route := range apiRoutes {
		routes = append(routes, route.Method+" "+route.Path)
	}
	slices.Sort(routes)

	return c.JSON(http.StatusOK, AboutResponse{
		Description: "Looks up users from the configured user API and keeps per-client preferences.",
		Routes:      routes,
	})
}

func (httpSvc *HttpService) getLogOutputHandler(c echo.Context) error {
	var getLogRequest GetLogOutputRequest
	if err := c.Bind(&getLogRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	logFilePath := logger.GetLogFilePath()
	if logFilePath == "" {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "file logging is disabled",
		})
	}

	maxLen := getLogRequest.MaxLen
	if maxLen <= 0 || maxLen > constants.LOG_TAIL_MAX_LEN {
		maxLen = constants.LOG_TAIL_MAX_LEN
	}

	logData, err := utils.ReadFileTail(logFilePath, maxLen)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to get log output: %v", err),
		})
	}

	return c.JSON(http.StatusOK, GetLogOutputResponse{Log: string(logData)})
}

func (httpSvc *HttpService) userHandler(c echo.Context) error {
	id := c.Param("id")

	userUrl, err := url.Parse(httpSvc.cfg.GetUserApiURL())
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Invalid user API URL")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("invalid user API URL: %v", err),
		})
	}
	query := userUrl.Query()
	query.Set("seed", id)
	userUrl.RawQuery = query.Encode()

	f := fetcher.NewRemoteFetcher(httpSvc.httpClient)
	f.Execute(c.Request().Context(), userUrl.String())
	state := f.State()

	response := UserResponse{
		ID:      id,
		Data:    state.Data,
		Loading: state.Loading,
		Error:   state.Error,
	}
	if state.Error != "" {
		return c.JSON(http.StatusBadGateway, response)
	}
	return c.JSON(http.StatusOK, response)
}

func (httpSvc *HttpService) getPreferenceHandler(c echo.Context) error {
	key := c.Param("key")

	var value any
	err := httpSvc.withPreference(key, false, func(pv *persisted.PersistedValue[any]) error {
		value = pv.Get()
		return nil
	})
	if err != nil {
		return preferenceError(c, err)
	}

	return c.JSON(http.StatusOK, PreferenceResponse{
		Key:   key,
		Value: value,
	})
}

func (httpSvc *HttpService) setPreferenceHandler(c echo.Context) error {
	key := c.Param("key")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Failed to read request: %s", err.Error()),
		})
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err = httpSvc.withPreference(key, true, func(pv *persisted.PersistedValue[any]) error {
		if err := pv.SetValue(value); err != nil {
			return fmt.Errorf("failed to save preference: %w", err)
		}
		return nil
	})
	if err != nil {
		return preferenceError(c, err)
	}

	return c.JSON(http.StatusOK, PreferenceResponse{
		Key:   key,
		Value: value,
	})
}

func (httpSvc *HttpService) clearPreferenceHandler(c echo.Context) error {
	err := httpSvc.withPreference(c.Param("key"), false, func(pv *persisted.PersistedValue[any]) error {
		if err := pv.Clear(); err != nil {
			return fmt.Errorf("failed to clear preference: %w", err)
		}
		return nil
	})
	if err != nil {
		return preferenceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) notFoundHandler(c echo.Context) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Message: "not found",
	})
}

type invalidKeyError struct {
	key string
}

func (e *invalidKeyError) Error() string {
	return fmt.Sprintf("invalid preference key %q", e.key)
}

// withPreference runs fn against the persisted value for key. Values
// written through PUT are cached, so each key is read from the store once
// per process. Other requests for an uncached key use a throwaway value and
// hold preferencesMu while fn runs, so no second instance can write the
// same key concurrently.
func (httpSvc *HttpService) withPreference(key string, cache bool, fn func(pv *persisted.PersistedValue[any]) error) error {
	if !preferenceKeyPattern.MatchString(key) {
		return &invalidKeyError{key: key}
	}

	httpSvc.preferencesMu.Lock()
	if pv, ok := httpSvc.preferences[key]; ok {
		httpSvc.preferencesMu.Unlock()
		return fn(pv)
	}

	pv, err := persisted.New[any](httpSvc.store, constants.PREFERENCES_KEY_PREFIX+key, nil)
	if err != nil {
		httpSvc.preferencesMu.Unlock()
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to load preference")
		return err
	}

	if cache {
		httpSvc.preferences[key] = pv
		httpSvc.preferencesMu.Unlock()
		return fn(pv)
	}

	defer httpSvc.preferencesMu.Unlock()
	return fn(pv)
}

func preferenceError(c echo.Context, err error) error {
	var keyErr *invalidKeyError
	if errors.As(err, &keyErr) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: err.Error(),
	})
}
