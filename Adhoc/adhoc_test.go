package Adhoc

import (
	"RouteGrader/model"
	"RouteGrader/model/modeltest"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registry struct {
	mu   sync.Mutex
	reqs []RegisterRequest
}

func (r *registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/api/register" {
		http.NotFound(w, req)
		return
	}
	var body RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.reqs = append(r.reqs, body)
	r.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RegisterResponse{Id: body.Id, Success: true})
}

func (r *registry) requests() []RegisterRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RegisterRequest(nil), r.reqs...)
}

func regConfig(t *testing.T, srv *httptest.Server) RegServerConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	var reg RegServerConfig
	reg.SetAddress(u.Hostname(), port)
	return reg
}

func TestRegister(t *testing.T) {
	reg := &registry{}
	srv := httptest.NewServer(reg)
	defer srv.Close()

	n := modeltest.Network(t)
	inst := Instance{IP: "10.0.0.7", RPCPort: 50051, HTTPPort: 8080, Models: model.NewHolder(n)}
	resp, err := register(context.Background(), resty.New(), regConfig(t, srv).URL(), inst.request("abc"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "abc", resp.Id)

	got := reg.requests()
	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.7", got[0].IP)
	assert.Equal(t, 50051, got[0].Port)
	assert.Equal(t, 8080, got[0].HTTPPort)
	assert.Equal(t, n.Digest(), got[0].Model)
	assert.NotZero(t, got[0].TimeStamp)

	_, err = register(context.Background(), resty.New(), srv.URL+"/elsewhere", inst.request("abc"))
	assert.ErrorContains(t, err, "404")
}

func TestSendAliveMessage(t *testing.T) {
	old := aliveInterval
	aliveInterval = 10 * time.Millisecond
	defer func() { aliveInterval = old }()

	reg := &registry{}
	srv := httptest.NewServer(reg)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go SendAliveMessage(ctx, regConfig(t, srv), Instance{IP: "127.0.0.1", RPCPort: 1}, &wg)

	assert.Eventually(t, func() bool { return len(reg.requests()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()

	got := reg.requests()
	for _, r := range got {
		assert.Equal(t, got[0].Id, r.Id)
		assert.Empty(t, r.Model)
	}
}
