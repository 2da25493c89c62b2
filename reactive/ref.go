// Package reactive provides an observable single-value cell.
package reactive

import "sync"

// Observer is called after every write with the value that was written.
type Observer[T any] func(newValue T)

// Ref holds a value and notifies its observers synchronously after each
// write. Observers run on the writer's goroutine after the lock is
// released, so they may read or write the Ref themselves.
type Ref[T any] struct {
	mu        sync.RWMutex
	value     T
	observers map[uint64]Observer[T]
	order     []uint64
	nextID    uint64
}

func NewRef[T any](initial T) *Ref[T] {
	return &Ref[T]{
		value:     initial,
		observers: make(map[uint64]Observer[T]),
	}
}

func (r *Ref[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Set replaces the value and notifies observers.
func (r *Ref[T]) Set(value T) {
	r.mu.Lock()
	r.value = value
	observers := r.snapshotObservers()
	r.mu.Unlock()

	notify(observers, value)
}

// Update mutates the value in place and notifies observers. Use it for
// deep changes to maps, slices or structs that Set would not see.
// fn runs under the write lock: it must read the value through its
// argument and must not call Get, Set or Update on r.
func (r *Ref[T]) Update(fn func(value *T)) {
	r.mu.Lock()
	fn(&r.value)
	value := r.value
	observers := r.snapshotObservers()
	r.mu.Unlock()

	notify(observers, value)
}

// Subscribe registers an observer and returns a function that removes it.
func (r *Ref[T]) Subscribe(observer Observer[T]) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.observers[id] = observer
	r.order = append(r.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.observers, id)
			for i, existing := range r.order {
				if existing == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

// must be called with r.mu held
func (r *Ref[T]) snapshotObservers() []Observer[T] {
	observers := make([]Observer[T], 0, len(r.order))
	for _, id := range r.order {
		observers = append(observers, r.observers[id])
	}
	return observers
}

func notify[T any](observers []Observer[T], value T) {
	for _, observer := range observers {
		observer(value)
	}
}
