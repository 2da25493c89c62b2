package persisted

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/userhub/kvstore"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/tests/mocks"
)

func init() {
	logger.Init("2")
}

func storedJSON[T any](t *testing.T, store kvstore.Store, key string) (T, bool) {
	var decoded T
	raw, found, err := store.Get(key)
	require.NoError(t, err)
	if !found {
		return decoded, false
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	return decoded, true
}

func TestPersistedValue_ThemeScenario(t *testing.T) {
	store := kvstore.NewMemoryStore()

	theme, err := New(store, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "light", theme.Get())

	// nothing is written until the first mutation
	_, found, err := store.Get("theme")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, theme.SetValue("dark"))
	stored, found := storedJSON[string](t, store, "theme")
	assert.True(t, found)
	assert.Equal(t, "dark", stored)

	require.NoError(t, theme.Clear())
	assert.Equal(t, "light", theme.Get())
	_, found, err = store.Get("theme")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersistedValue_LoadsExistingEntry(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set("favorites", `["alice","bob"]`))

	favorites, err := New(store, "favorites", []string{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, favorites.Get())
}

func TestPersistedValue_MalformedEntryFallsBackToDefault(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set("theme", `{not json`))

	theme, err := New(store, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "light", theme.Get())

	// the malformed entry is left alone
	raw, found, err := store.Get("theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{not json`, raw)
}

func TestPersistedValue_WrongTypeFallsBackToDefault(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set("count", `"seven"`))

	count, err := New(store, "count", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, count.Get())
}

func TestPersistedValue_SetValueRoundTrips(t *testing.T) {
	type settings struct {
		Theme    string   `json:"theme"`
		PageSize int      `json:"pageSize"`
		Tags     []string `json:"tags"`
	}

	store := kvstore.NewMemoryStore()
	pv, err := New(store, "settings", settings{Theme: "light", PageSize: 10})
	require.NoError(t, err)

	values := []settings{
		{Theme: "dark", PageSize: 25},
		{Theme: "", PageSize: 0, Tags: []string{"a"}},
		{Theme: "sepia", PageSize: 100, Tags: []string{}},
	}
	for _, v := range values {
		require.NoError(t, pv.SetValue(v))
		stored, found := storedJSON[settings](t, store, "settings")
		assert.True(t, found)
		assert.Equal(t, v, stored)
	}
}

func TestPersistedValue_SetNilRemovesEntry(t *testing.T) {
	store := kvstore.NewMemoryStore()

	profile, err := New[map[string]any](store, "profile", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	require.NoError(t, profile.SetValue(map[string]any{"name": "Grace"}))
	_, found := storedJSON[map[string]any](t, store, "profile")
	assert.True(t, found)

	require.NoError(t, profile.SetValue(nil))
	_, found, err = store.Get("profile")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, profile.Get())
}

func TestPersistedValue_NilPointerRemovesEntry(t *testing.T) {
	store := kvstore.NewMemoryStore()

	name := "Ada"
	pv, err := New(store, "name", &name)
	require.NoError(t, err)

	require.NoError(t, pv.SetValue(&name))
	stored, found := storedJSON[string](t, store, "name")
	assert.True(t, found)
	assert.Equal(t, "Ada", stored)

	require.NoError(t, pv.SetValue(nil))
	_, found, err = store.Get("name")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersistedValue_UpdatePersistsDeepMutation(t *testing.T) {
	store := kvstore.NewMemoryStore()

	prefs, err := New(store, "prefs", map[string]string{"theme": "light"})
	require.NoError(t, err)

	require.NoError(t, prefs.Update(func(m *map[string]string) {
		(*m)["lang"] = "de"
	}))

	stored, found := storedJSON[map[string]string](t, store, "prefs")
	assert.True(t, found)
	assert.Equal(t, map[string]string{"theme": "light", "lang": "de"}, stored)
}

func TestPersistedValue_ObserversRunAfterStoreWrite(t *testing.T) {
	store := kvstore.NewMemoryStore()

	pv, err := New(store, "counter", 0)
	require.NoError(t, err)

	observed := []int{}
	storedWhenObserved := []int{}
	unsubscribe := pv.Subscribe(func(v int) {
		observed = append(observed, v)
		stored, _ := storedJSON[int](t, store, "counter")
		storedWhenObserved = append(storedWhenObserved, stored)
	})

	require.NoError(t, pv.SetValue(5))
	require.NoError(t, pv.Update(func(v *int) { *v++ }))
	require.NoError(t, pv.Err())

	assert.Equal(t, []int{5, 6}, observed)
	assert.Equal(t, []int{5, 6}, storedWhenObserved)

	unsubscribe()
	require.NoError(t, pv.SetValue(7))
	assert.Equal(t, []int{5, 6}, observed)
}

func TestPersistedValue_ClearAlwaysRemovesEntry(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(t *testing.T, pv *PersistedValue[any])
	}{
		{
			name:  "untouched",
			setup: func(t *testing.T, pv *PersistedValue[any]) {},
		},
		{
			name: "after set",
			setup: func(t *testing.T, pv *PersistedValue[any]) {
				require.NoError(t, pv.SetValue("something"))
			},
		},
		{
			name: "after set nil",
			setup: func(t *testing.T, pv *PersistedValue[any]) {
				require.NoError(t, pv.SetValue(nil))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, defaultValue := range []any{nil, "light", float64(42)} {
				store := kvstore.NewMemoryStore()
				pv, err := New[any](store, "key", defaultValue)
				require.NoError(t, err)

				tc.setup(t, pv)

				require.NoError(t, pv.Clear())
				assert.Equal(t, defaultValue, pv.Get())
				_, found, err := store.Get("key")
				require.NoError(t, err)
				assert.False(t, found)
			}
		})
	}
}

func TestPersistedValue_ClearAfterMalformedEntry(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set("theme", `oops`))

	theme, err := New(store, "theme", "light")
	require.NoError(t, err)

	require.NoError(t, theme.Clear())
	assert.Equal(t, "light", theme.Get())
	_, found, err := store.Get("theme")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersistedValue_StoreReadFailure(t *testing.T) {
	store := mocks.NewMockStore(t)
	store.On("Get", "theme").Return("", false, errors.New("disk on fire"))

	pv, err := New(store, "theme", "light")
	require.Error(t, err)
	assert.Nil(t, pv)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestPersistedValue_StoreWriteFailureIsReturned(t *testing.T) {
	quotaErr := errors.New("quota exceeded")

	store := mocks.NewMockStore(t)
	store.On("Get", "theme").Return("", false, nil)
	store.On("Set", "theme", `"dark"`).Return(quotaErr).Once()
	store.On("Set", "theme", `"dim"`).Return(nil).Once()

	theme, err := New(store, "theme", "light")
	require.NoError(t, err)

	err = theme.SetValue("dark")
	require.ErrorIs(t, err, quotaErr)
	// the in-memory value is still updated
	assert.Equal(t, "dark", theme.Get())
	require.ErrorIs(t, theme.Err(), quotaErr)

	// a later successful write clears the error
	require.NoError(t, theme.SetValue("dim"))
	require.NoError(t, theme.Err())
}

func TestPersistedValue_ClearDeleteFailure(t *testing.T) {
	deleteErr := errors.New("read-only")

	store := mocks.NewMockStore(t)
	store.On("Get", "theme").Return("", false, nil)
	store.On("Set", "theme", `"light"`).Return(nil)
	store.On("Delete", "theme").Return(deleteErr)

	theme, err := New(store, "theme", "light")
	require.NoError(t, err)

	err = theme.Clear()
	require.ErrorIs(t, err, deleteErr)
	assert.Equal(t, "light", theme.Get())
}

func TestPersistedValue_ClearDeletesAfterResetting(t *testing.T) {
	store := mocks.NewMockStore(t)
	store.On("Get", "theme").Return(`"dark"`, true, nil)

	setCall := store.On("Set", "theme", `"light"`).Return(nil).Once()
	store.On("Delete", "theme").Return(nil).Once().NotBefore(setCall)

	theme, err := New(store, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme.Get())

	require.NoError(t, theme.Clear())
	store.AssertNumberOfCalls(t, "Delete", 1)
	store.AssertCalled(t, "Set", "theme", mock.Anything)
}

func TestDecodeError(t *testing.T) {
	_, err := decode[int]("count", "nope")
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "count", decodeErr.Key)
	assert.Contains(t, err.Error(), "count")

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestIsNil(t *testing.T) {
	var nilMap map[string]int
	var nilSlice []int
	var nilPtr *int
	var nilIface error

	assert.True(t, isNil(nil))
	assert.True(t, isNil(nilMap))
	assert.True(t, isNil(nilSlice))
	assert.True(t, isNil(nilPtr))
	assert.True(t, isNil(nilIface))

	assert.False(t, isNil(0))
	assert.False(t, isNil(""))
	assert.False(t, isNil(false))
	assert.False(t, isNil([]int{}))
	assert.False(t, isNil(map[string]int{}))
}

// gatedStore blocks writes of gatedValue until release is closed.
type gatedStore struct {
	*kvstore.MemoryStore
	gatedValue string
	gateErr    error
	entered    chan struct{}
	release    chan struct{}
}

func (s *gatedStore) Set(key, value string) error {
	if value == s.gatedValue {
		close(s.entered)
		<-s.release
		return s.gateErr
	}
	return s.MemoryStore.Set(key, value)
}

func TestPersistedValue_SlowWriteDoesNotOverwriteLaterValue(t *testing.T) {
	gateErr := errors.New("slow disk")
	store := &gatedStore{
		MemoryStore: kvstore.NewMemoryStore(),
		gatedValue:  `"a"`,
		gateErr:     gateErr,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}

	pv, err := New(store, "letter", "")
	require.NoError(t, err)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- pv.SetValue("a")
	}()
	<-store.entered

	secondErr := make(chan error, 1)
	go func() {
		secondErr <- pv.SetValue("b")
	}()

	close(store.release)

	require.ErrorIs(t, <-firstErr, gateErr)
	require.NoError(t, <-secondErr)

	assert.Equal(t, "b", pv.Get())
	stored, found := storedJSON[string](t, store, "letter")
	assert.True(t, found)
	assert.Equal(t, "b", stored)
	require.NoError(t, pv.Err())
}

func TestPersistedValue_ConcurrentWritesKeepStoreInSync(t *testing.T) {
	store := kvstore.NewMemoryStore()

	pv, err := New(store, "counters", map[string]int{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, pv.Update(func(m *map[string]int) {
				(*m)[fmt.Sprintf("k%d", i%5)] = i
			}))
		}(i)
		go func(i int) {
			defer wg.Done()
			if i%7 == 0 {
				assert.NoError(t, pv.SetValue(map[string]int{"reset": i}))
				return
			}
			assert.NoError(t, pv.Update(func(m *map[string]int) {
				(*m)["total"]++
			}))
		}(i)
	}
	wg.Wait()

	stored, found := storedJSON[map[string]int](t, store, "counters")
	assert.True(t, found)
	assert.Equal(t, pv.Get(), stored)
}
