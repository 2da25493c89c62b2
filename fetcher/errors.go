package fetcher

import "fmt"

// TransportError covers every way a fetch can fail: the request could not
// be built or sent, the server answered with a non-2xx status, or the
// body could not be read or decoded. StatusCode is 0 unless a response
// was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("http error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
