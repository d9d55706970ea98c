package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/strand"
	strandhttp "github.com/aretw0/strand/pkg/adapters/http"
	"github.com/aretw0/strand/pkg/adapters/memory"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoUnit = `
channels: [c]
fibers:
  main:
    - spawn: echo
    - write: {chan: c, value: hi}
  echo:
    - read: {chan: c, into: v}
    - print: "echo ${v}"
`

func newServer(t *testing.T, opts ...strandhttp.Option) (*httptest.Server, *strandhttp.StreamManager, *observability.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	streams := strandhttp.NewStreamManager(nil)

	eng, err := strand.New("",
		strand.WithSource(memory.NewSource(map[string]string{
			"echo": echoUnit,
			"stop": "fibers:\n  main:\n    - halt: stop\n",
		})),
		strand.WithLifecycleHooks(domain.Chain(metrics.Hooks(), streams.Hooks())),
	)
	require.NoError(t, err)

	opts = append([]strandhttp.Option{
		strandhttp.WithStreams(streams),
		strandhttp.WithGatherer(reg),
		strandhttp.WithVersion("test"),
	}, opts...)
	srv := httptest.NewServer(strandhttp.NewHandler(eng, opts...))
	t.Cleanup(srv.Close)
	return srv, streams, metrics
}

func postRun(t *testing.T, srv *httptest.Server, unit string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(strandhttp.RunRequest{Unit: unit})
	resp, err := http.Post(srv.URL+"/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_RunAndFetchReport(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postRun(t, srv, "echo")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var report domain.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, []string{"echo hi"}, report.Output)

	get, err := http.Get(srv.URL + "/runs/" + report.ID)
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	list, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer list.Body.Close()
	var ids []string
	require.NoError(t, json.NewDecoder(list.Body).Decode(&ids))
	assert.Equal(t, []string{report.ID}, ids)
}

func TestServer_ErrorStatuses(t *testing.T) {
	srv, _, _ := newServer(t)

	assert.Equal(t, http.StatusNotFound, postRun(t, srv, "ghost").StatusCode)

	resp := postRun(t, srv, "stop")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var body strandhttp.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "halt")
	require.NotNil(t, body.Report, "a halted run still has a report")

	bad, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	missing, err := http.Get(srv.URL + "/runs/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestServer_UnitsHealthInfo(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/units")
	require.NoError(t, err)
	defer resp.Body.Close()
	var units []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&units))
	assert.Equal(t, []string{"echo", "stop"}, units)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	info, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer info.Body.Close()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(info.Body).Decode(&payload))
	assert.Equal(t, "test", payload["version"])
}

func TestServer_Metrics(t *testing.T) {
	srv, _, _ := newServer(t)
	postRun(t, srv, "echo")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "strand_rendezvous_total 1")
}

func TestServer_EventsStream(t *testing.T) {
	srv, streams, _ := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?type=rendezvous", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	postRun(t, srv, "echo")

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	var ev domain.FiberEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev))
	assert.Equal(t, domain.EventRendezvous, ev.Type, "the filter drops every other event type")
}

func TestStreamManager_UnsubscribeIsIdempotent(t *testing.T) {
	sm := strandhttp.NewStreamManager(nil)
	_, cancel := sm.Subscribe()
	assert.Equal(t, 1, sm.Subscribers())
	cancel()
	cancel()
	assert.Zero(t, sm.Subscribers())
	sm.Broadcast("nobody listens")
}
