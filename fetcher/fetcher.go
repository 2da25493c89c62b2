package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flokiorg/userhub/constants"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/reactive"
)

// State is a point-in-time copy of a RemoteFetcher's fields.
type State struct {
	Data    any    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// RemoteFetcher performs one GET per Execute call and publishes the
// outcome through three observable fields. Data is nil and Error is ""
// when absent.
//
// The fields are written only by Execute; callers subscribe to them or
// read them. Their observers may call State but not Execute.
type RemoteFetcher struct {
	Data    *reactive.Ref[any]
	Loading *reactive.Ref[bool]
	Error   *reactive.Ref[string]

	httpClient *http.Client

	// guards latestCall and the field writes that depend on it
	mu         sync.Mutex
	latestCall uint64
	// updated before each field write so observers see the new state
	state atomic.Pointer[State]
}

// NewRemoteFetcher returns a fetcher using httpClient, or a client with
// the default timeout when httpClient is nil.
func NewRemoteFetcher(httpClient *http.Client) *RemoteFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DEFAULT_FETCH_TIMEOUT}
	}
	f := &RemoteFetcher{
		Data:       reactive.NewRef[any](nil),
		Loading:    reactive.NewRef(false),
		Error:      reactive.NewRef(""),
		httpClient: httpClient,
	}
	f.state.Store(&State{})
	return f
}

// NewRemoteFetcherWithTimeout is a convenience for a fetcher with its own client.
func NewRemoteFetcherWithTimeout(timeout time.Duration) *RemoteFetcher {
	return NewRemoteFetcher(&http.Client{Timeout: timeout})
}

// Execute fetches url and publishes the decoded body to Data, or a
// message to Error. Loading is true for the duration of the call.
//
// Calls may overlap. Only the most recently started call publishes its
// outcome; completions of earlier calls are dropped.
func (f *RemoteFetcher) Execute(ctx context.Context, url string) {
	f.mu.Lock()
	f.latestCall++
	call := f.latestCall
	f.setLoading(true)
	f.setError("")
	f.setData(nil)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if call == f.latestCall {
			f.setLoading(false)
		}
	}()

	data, err := f.fetch(ctx, url)

	f.mu.Lock()
	defer f.mu.Unlock()

	if call != f.latestCall {
		logger.Logger.Debug().
			Str("url", url).
			Uint64("call", call).
			Uint64("latest_call", f.latestCall).
			Msg("Dropping stale fetch result")
		return
	}

	if err != nil {
		f.setError(err.Error())
		return
	}
	f.setData(data)
}

// State returns a consistent snapshot of Data, Loading and Error.
func (f *RemoteFetcher) State() State {
	return *f.state.Load()
}

// the setters below must be called with f.mu held

func (f *RemoteFetcher) setLoading(loading bool) {
	next := f.State()
	next.Loading = loading
	f.state.Store(&next)
	f.Loading.Set(loading)
}

func (f *RemoteFetcher) setError(message string) {
	next := f.State()
	next.Error = message
	f.state.Store(&next)
	f.Error.Set(message)
}

func (f *RemoteFetcher) setData(data any) {
	next := f.State()
	next.Data = data
	f.state.Store(&next)
	f.Data.Set(data)
}

func (f *RemoteFetcher) fetch(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Str("url", url).Msg("Error creating fetch request")
		return nil, &TransportError{URL: url, Err: err}
	}
	setDefaultRequestHeaders(req)

	res, err := f.httpClient.Do(req)
	if err != nil {
		logger.Logger.Error().Err(err).Str("url", url).Msg("Failed to fetch remote resource")
		return nil, &TransportError{URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		logger.Logger.Error().
			Str("url", url).
			Int("status_code", res.StatusCode).
			Msg("Remote endpoint returned non-success code")
		return nil, &TransportError{URL: url, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logger.Logger.Error().Err(err).Str("url", url).Msg("Failed to read response body")
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var decoded any
	err = json.Unmarshal(body, &decoded)
	if err != nil {
		logger.Logger.Error().
			Str("url", url).
			Str("body", truncate(string(body), 256)).
			Err(err).
			Msg("Failed to decode response body")
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to decode response body: %w", err)}
	}

	return unwrapEnvelope(decoded), nil
}

// unwrapEnvelope returns the first record of a {"results": [...]}
// envelope, or body unchanged when it is not one or the list is empty.
func unwrapEnvelope(body any) any {
	obj, ok := body.(map[string]any)
	if !ok {
		return body
	}
	results, ok := obj[constants.ENVELOPE_RESULTS_FIELD].([]any)
	if !ok || len(results) == 0 {
		return body
	}
	return results[0]
}

func setDefaultRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", constants.APP_USER_AGENT)
	req.Header.Set("Accept", "application/json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
