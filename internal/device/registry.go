package device

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/state"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Callback receives the full new state after every change.
type Callback func(state.State)

// Registry is an ordered set of callbacks. Insertion order is firing order.
type Registry struct {
	mu     sync.Mutex
	next   uint64
	subs   *orderedmap.OrderedMap[uint64, Callback]
	logger *logrus.Logger
}

func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		subs:   orderedmap.New[uint64, Callback](),
		logger: logger,
	}
}

// Register adds cb and returns a function that removes it. The returned
// function is idempotent and may be called from inside a callback.
func (r *Registry) Register(cb Callback) (unregister func()) {
	r.mu.Lock()
	r.next++
	token := r.next
	r.subs.Set(token, cb)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.subs.Delete(token)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs.Len()
}

// Fire calls every registered callback with s. Callbacks registered or
// removed while firing take effect from the next call.
func (r *Registry) Fire(s state.State) {
	r.mu.Lock()
	snapshot := make([]Callback, 0, r.subs.Len())
	for pair := r.subs.Oldest(); pair != nil; pair = pair.Next() {
		snapshot = append(snapshot, pair.Value)
	}
	r.mu.Unlock()

	for i, cb := range snapshot {
		r.run(i, cb, s)
	}
}

func (r *Registry) run(i int, cb Callback, s state.State) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithFields(logrus.Fields{
				"callback": i,
				"panic":    fmt.Sprint(p),
			}).Error("State callback panicked")
		}
	}()
	cb(s)
}
