package analyzer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zynx/internal/config"
	"zynx/internal/model"
	"zynx/internal/policy"
)

func TestReportDeliversJSONPayload(t *testing.T) {
	var mu sync.Mutex
	var received denyEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, json.NewDecoder(req.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New(config.ReporterConfig{Enabled: true, WebhookURL: srv.URL})
	fast := model.FastArgs{UID: 10123, GID: 10123, PackageInfo: []model.PackageInfo{{PackageName: "com.example"}}}
	results := []policy.Result{{ModuleID: "mod-a", Verdict: model.Deny}}

	done := make(chan struct{})
	r.Report(fast, results, func(err error) { close(done) })

	select {
	case <-done:
		t.Fatal("unexpected error callback")
	case <-time.After(500 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, uint32(10123), received.UID)
	assert.Equal(t, []string{"com.example"}, received.Packages)
}

func TestReportDisabledIsNoOp(t *testing.T) {
	called := false
	r := New(config.ReporterConfig{Enabled: false})
	r.Report(model.FastArgs{}, nil, func(err error) { called = true })
	time.Sleep(50 * time.Millisecond)
	assert.False(t, called)
}

func TestReportInvokesOnErrorOnFailure(t *testing.T) {
	r := New(config.ReporterConfig{Enabled: true, WebhookURL: "http://127.0.0.1:1"})
	errCh := make(chan error, 1)
	r.Report(model.FastArgs{}, nil, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected error callback")
	}
}
