package integrity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProberCachesResults(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(ProberOptions{})
	for range 3 {
		res := p.Probe(context.Background(), srv.URL)
		assert.True(t, res.OK)
		assert.Equal(t, http.StatusOK, res.Status)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestProberTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	p := NewProber(ProberOptions{Timeout: 50 * time.Millisecond})
	started := time.Now()
	res := p.Probe(context.Background(), srv.URL)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Err)
	assert.False(t, res.Canceled, "a per-probe timeout is a failed probe")
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestProberStatusRules(t *testing.T) {
	tests := []struct {
		status int
		ok     bool
	}{
		{http.StatusOK, true},
		{http.StatusMovedPermanently, true},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
		res := NewProber(ProberOptions{Client: client}).Probe(context.Background(), srv.URL)
		assert.Equal(t, tt.ok, res.OK, "status %d", tt.status)
		assert.Equal(t, tt.status, res.Status)
		srv.Close()
	}
}

func TestProberRateLimitHonorsContext(t *testing.T) {
	p := NewProber(ProberOptions{RateLimit: 0.001})
	// The first token is available immediately; the second is not.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()
	assert.True(t, p.Probe(context.Background(), srv.URL+"/a").OK)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := p.Probe(ctx, srv.URL+"/b")
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Err)
	assert.True(t, res.Canceled)
}
