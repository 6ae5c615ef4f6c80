package audit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Log(event string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Log("login_failed", map[string]interface{}{"reason": "bad password", "client_ip": "10.0.0.1"})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "login_failed", ctx["event"])
	assert.Equal(t, "security", ctx["component"])
	assert.Equal(t, "bad password", ctx["reason"])
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Multi{a, nil, b, Nop{}}.Log("logout", nil)

	assert.Equal(t, []string{"logout"}, a.events)
	assert.Equal(t, []string{"logout"}, b.events)
}
