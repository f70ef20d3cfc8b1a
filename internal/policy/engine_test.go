package policy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zynx/internal/adapter"
	"zynx/internal/codec"
	"zynx/internal/model"
	"zynx/internal/transport"
)

type pipeTransport struct {
	client   net.Conn
	failOpen error
}

func (p *pipeTransport) Open(ctx context.Context) (transport.Connection, error) {
	if p.failOpen != nil {
		return nil, p.failOpen
	}
	return p.client, nil
}

func (p *pipeTransport) Close(conn transport.Connection) error { return conn.Close() }
func (p *pipeTransport) Teardown() error                       { return nil }

func newAdapter(id string, serve func(server net.Conn)) *adapter.Adapter {
	client, server := net.Pipe()
	go serve(server)
	return adapter.New(model.ModuleDescriptor{ModuleID: id}, &pipeTransport{client: client})
}

func respondWith(v model.Verdict) func(net.Conn) {
	return func(server net.Conn) {
		defer server.Close()
		_, _ = codec.ReadMsg(server)
		_ = codec.WriteMsg(server, codec.EncodeCheckResponse(v))
	}
}

func noSlow(ctx context.Context) model.SlowArgs { return model.SlowArgs{} }

func TestEvaluateReturnsOneResultPerAdapter(t *testing.T) {
	a1 := newAdapter("allow-mod", respondWith(model.Allow))
	a2 := newAdapter("deny-mod", respondWith(model.Deny))

	e := New([]*adapter.Adapter{a1, a2})
	results := e.Evaluate(context.Background(), model.FastArgs{}, noSlow)

	require.Len(t, results, 2)
	byID := map[string]model.Verdict{}
	for _, r := range results {
		byID[r.ModuleID] = r.Verdict
	}
	assert.Equal(t, model.Allow, byID["allow-mod"])
	assert.Equal(t, model.Deny, byID["deny-mod"])
}

func TestEvaluateFaultIsolation(t *testing.T) {
	broken := adapter.New(model.ModuleDescriptor{ModuleID: "broken"}, &pipeTransport{failOpen: assertErr{}})
	healthy := newAdapter("healthy", respondWith(model.Allow))

	e := New([]*adapter.Adapter{broken, healthy})
	results := e.Evaluate(context.Background(), model.FastArgs{}, noSlow)

	byID := map[string]model.Verdict{}
	for _, r := range results {
		byID[r.ModuleID] = r.Verdict
	}
	assert.Equal(t, model.Deny, byID["broken"])
	assert.Equal(t, model.Allow, byID["healthy"])
}

func TestEvaluateRunsAdaptersConcurrently(t *testing.T) {
	slow := func(server net.Conn) {
		defer server.Close()
		_, _ = codec.ReadMsg(server)
		time.Sleep(300 * time.Millisecond)
		_ = codec.WriteMsg(server, codec.EncodeCheckResponse(model.Allow))
	}
	a1 := newAdapter("a", slow)
	a2 := newAdapter("b", slow)
	a3 := newAdapter("c", slow)

	e := New([]*adapter.Adapter{a1, a2, a3})
	start := time.Now()
	results := e.Evaluate(context.Background(), model.FastArgs{}, noSlow)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	assert.Less(t, elapsed, 600*time.Millisecond)
}

func TestOverallDenyIfAnyDeny(t *testing.T) {
	results := []Result{{ModuleID: "a", Verdict: model.Allow}, {ModuleID: "b", Verdict: model.Deny}}
	assert.Equal(t, model.Deny, Overall(results))
}

func TestOverallAllowIfAllAllow(t *testing.T) {
	results := []Result{{ModuleID: "a", Verdict: model.Allow}, {ModuleID: "b", Verdict: model.Allow}}
	assert.Equal(t, model.Allow, Overall(results))
}

func TestOverallAllowOnEmpty(t *testing.T) {
	assert.Equal(t, model.Allow, Overall(nil))
}

type assertErr struct{}

func (assertErr) Error() string { return "synthetic open failure" }
