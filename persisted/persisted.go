// Package persisted mirrors a reactive value into a kvstore.Store.
//
// The store is read once, when the value is created. From then on every
// write to the value is pushed to the store as JSON; a nil value removes
// the entry instead.
package persisted

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/flokiorg/userhub/kvstore"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/reactive"
)

// DecodeError is reported when the stored text at Key is not valid JSON
// for the value's type. It never escapes New; the default is used instead.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode stored value for key %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type PersistedValue[T any] struct {
	key          string
	defaultValue T
	store        kvstore.Store
	value        *reactive.Ref[T]

	// held across the in-memory write and the store write it triggers, so
	// the store always receives writes in the order the value saw them
	writeMu sync.Mutex
	// outcome of the store write for the mutation in progress, guarded by writeMu
	writeErr error

	errMu   sync.Mutex
	lastErr error
}

// New creates a value bound to key, initialized from the store when the
// entry exists and decodes, otherwise from defaultValue. Only a failed
// store read is returned as an error.
func New[T any](store kvstore.Store, key string, defaultValue T) (*PersistedValue[T], error) {
	initial := defaultValue

	stored, found, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted value: %w", err)
	}
	if found {
		decoded, err := decode[T](key, stored)
		if err != nil {
			// the malformed entry is left in place until the next write
			logger.Logger.Error().Err(err).Str("key", key).Msg("Error parsing persisted value, using default")
		} else {
			initial = decoded
		}
	}

	pv := &PersistedValue[T]{
		key:          key,
		defaultValue: defaultValue,
		store:        store,
		value:        reactive.NewRef(initial),
	}
	pv.value.Subscribe(pv.persist)

	return pv, nil
}

func (pv *PersistedValue[T]) Key() string {
	return pv.key
}

func (pv *PersistedValue[T]) Get() T {
	return pv.value.Get()
}

// Subscribe registers an observer that runs after each write has reached
// the store. Observers run while the write is still in progress and must
// not call SetValue, Update or Clear.
func (pv *PersistedValue[T]) Subscribe(observer reactive.Observer[T]) (unsubscribe func()) {
	return pv.value.Subscribe(observer)
}

// SetValue replaces the value and returns the store write error, if any.
func (pv *PersistedValue[T]) SetValue(newValue T) error {
	pv.writeMu.Lock()
	defer pv.writeMu.Unlock()

	pv.value.Set(newValue)
	return pv.settle(pv.writeErr)
}

// Update mutates the value in place, e.g. a single map entry, and
// persists the result. fn runs under the value's lock and must not call
// Get.
func (pv *PersistedValue[T]) Update(fn func(value *T)) error {
	pv.writeMu.Lock()
	defer pv.writeMu.Unlock()

	pv.value.Update(fn)
	return pv.settle(pv.writeErr)
}

// Clear restores the default value and removes the store entry, even
// when the default itself would have been written.
func (pv *PersistedValue[T]) Clear() error {
	pv.writeMu.Lock()
	defer pv.writeMu.Unlock()

	pv.value.Set(pv.defaultValue)
	writeErr := pv.writeErr

	if err := pv.store.Delete(pv.key); err != nil {
		logger.Logger.Error().Err(err).Str("key", pv.key).Msg("Failed to remove persisted value")
		return pv.settle(errors.Join(writeErr, err))
	}
	return pv.settle(writeErr)
}

// Err returns the error from the most recent completed mutation.
func (pv *PersistedValue[T]) Err() error {
	pv.errMu.Lock()
	defer pv.errMu.Unlock()
	return pv.lastErr
}

// must be called with writeMu held
func (pv *PersistedValue[T]) settle(err error) error {
	pv.writeErr = nil

	pv.errMu.Lock()
	pv.lastErr = err
	pv.errMu.Unlock()

	return err
}

// persist is the value's first observer. Every write goes through SetValue,
// Update or Clear, so it always runs with writeMu held and no other write
// can touch newValue while it is encoded.
func (pv *PersistedValue[T]) persist(newValue T) {
	if isNil(newValue) {
		if err := pv.store.Delete(pv.key); err != nil {
			logger.Logger.Error().Err(err).Str("key", pv.key).Msg("Failed to remove persisted value")
			pv.writeErr = err
		}
		return
	}

	encoded, err := json.Marshal(newValue)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", pv.key).Msg("Failed to encode persisted value")
		pv.writeErr = fmt.Errorf("failed to encode value for key %s: %w", pv.key, err)
		return
	}

	if err := pv.store.Set(pv.key, string(encoded)); err != nil {
		logger.Logger.Error().Err(err).Str("key", pv.key).Msg("Failed to write persisted value")
		pv.writeErr = err
	}
}

func decode[T any](key string, stored string) (T, error) {
	var decoded T
	if err := json.Unmarshal([]byte(stored), &decoded); err != nil {
		var zero T
		return zero, &DecodeError{Key: key, Err: err}
	}
	return decoded, nil
}

// isNil reports whether v is nil or a typed nil (pointer, map, slice,
// interface, func or chan).
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
