package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{})   {}
func (nopLogger) Info(string, string, map[string]interface{})    {}
func (nopLogger) Warning(string, string, map[string]interface{}) {}
func (nopLogger) Error(string, error, map[string]interface{})    {}

type recorder struct {
	name  string
	delay time.Duration

	mu    *sync.Mutex
	order *[]string
}

func (r *recorder) Shutdown() {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.order = append(*r.order, r.name)
}

func TestShutdownReverseOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)

	manager := NewManager(nopLogger{}, time.Second)
	manager.Register("a", &recorder{name: "a", mu: &mu, order: &order})
	manager.Register("b", &recorder{name: "b", mu: &mu, order: &order})
	manager.Register("c", &recorder{name: "c", mu: &mu, order: &order})

	manager.Shutdown()

	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.Error(t, manager.Context().Err())

	// Second call is a no-op.
	manager.Shutdown()
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestShutdownComponentTimeout(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)

	manager := NewManager(nopLogger{}, 20*time.Millisecond)
	manager.Register("fast", &recorder{name: "fast", mu: &mu, order: &order})
	manager.Register("stuck", &recorder{name: "stuck", delay: 500 * time.Millisecond, mu: &mu, order: &order})

	done := make(chan struct{})
	go func() {
		defer close(done)
		manager.Shutdown()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not move past the stuck component")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, order, "fast")
}

func TestNewManagerDefaultsTimeout(t *testing.T) {
	manager := NewManager(nopLogger{}, 0)
	assert.Equal(t, DefaultComponentTimeout, manager.timeout)
}
