package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vote-admin/ledger"
	"vote-admin/models"
	"vote-admin/service"
	"vote-admin/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type chainSource struct {
	failAt uint32
}

func blockHash(h uint32) common.Hash {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("block-%d", h)))
}

func (c *chainSource) GetBlock(ctx context.Context, h uint32) (*models.CompactBlock, error) {
	if c.failAt != 0 && h == c.failAt {
		return nil, errors.New("connection refused")
	}
	return &models.CompactBlock{
		Height:   h,
		Hash:     blockHash(h),
		PrevHash: blockHash(h - 1),
		Actions: []models.Action{{
			Nullifier: crypto.Keccak256Hash([]byte(fmt.Sprintf("nf-%d", h))),
			Cmx:       crypto.Keccak256Hash([]byte(fmt.Sprintf("cmx-%d", h))),
		}},
	}, nil
}

type testServer struct {
	*httptest.Server
	exportDir string
}

func newTestServer(t *testing.T, src ledger.BlockSource) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	mc := service.NewMetricsCollector(reg)
	b := service.NewBootstrapper(ledger.NewSyncer(src), service.WithMetrics(mc))
	q := service.NewBootstrapQueue(b, 1, 4)
	q.Start()

	dir := filepath.Join(t.TempDir(), "exports")
	srv := NewServer(q, mc, APIConfig{ExportDir: dir, Gatherer: reg})
	ts := httptest.NewServer(srv.Router())

	t.Cleanup(func() {
		ts.Close()
		q.Stop()
	})
	return &testServer{Server: ts, exportDir: dir}
}

type event struct {
	name string
	data string
}

func readEvents(t *testing.T, body io.Reader) []event {
	t.Helper()

	var (
		events  []event
		current event
	)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			current.name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			current.data += strings.TrimPrefix(line, "data:")
		case line == "" && current.name != "":
			events = append(events, current)
			current = event{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func boardVote() models.ElectionTemplate {
	return models.ElectionTemplate{
		Name:     "Board Vote",
		Start:    1000,
		End:      1010,
		Question: "Pick one",
		Choices:  "Alice\nBob\nCarol",
	}
}

func TestCreateElectionStream(t *testing.T) {
	ts := newTestServer(t, &chainSource{})

	resp := postJSON(t, ts.URL+"/api/elections", boardVote())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := readEvents(t, resp.Body)
	require.NotEmpty(t, events)

	var progress []string
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, "progress", e.name)
		progress = append(progress, e.data)
	}
	assert.Equal(t, []string{"0", "5", "10", "15", "20", "25", "30", "35", "40", "45", "75", "100"}, progress)

	last := events[len(events)-1]
	require.Equal(t, "election", last.name)

	var data models.ElectionData
	require.NoError(t, json.Unmarshal([]byte(last.data), &data))
	assert.Len(t, strings.Fields(data.Seed), 24)
	assert.Equal(t, "board-vote", data.Election.ID)
	assert.Len(t, data.Election.Candidates, 3)
	assert.True(t, data.Election.Finalized())
}

func TestCreateElectionStreamsError(t *testing.T) {
	ts := newTestServer(t, &chainSource{failAt: 1002})

	resp := postJSON(t, ts.URL+"/api/elections", boardVote())
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 3)
	assert.Equal(t, "progress", events[0].name)
	assert.Equal(t, "progress", events[1].name)

	last := events[2]
	require.Equal(t, "error", last.name)
	var er ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(last.data), &er))
	assert.Equal(t, service.KindSync.String(), er.Kind)
	assert.Contains(t, er.Error, "connection refused")
}

func TestCreateElectionConfigError(t *testing.T) {
	ts := newTestServer(t, &chainSource{})

	tmpl := boardVote()
	tmpl.Choices = ""
	resp := postJSON(t, ts.URL+"/api/elections", tmpl)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].name)
	assert.Contains(t, events[0].data, service.KindConfig.String())
}

func TestCreateElectionBadBody(t *testing.T) {
	ts := newTestServer(t, &chainSource{})

	resp, err := http.Post(ts.URL+"/api/elections", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func finalizedElection() models.Election {
	return models.Election{
		ID:          "board-vote",
		Name:        "Board Vote",
		StartHeight: 1000,
		EndHeight:   1010,
		Question:    "Pick one",
		Candidates:  []models.CandidateChoice{{Address: "zvote1abc", Choice: "Alice"}},
		Cmx:         crypto.Keccak256Hash([]byte("cmx")),
		Nf:          crypto.Keccak256Hash([]byte("nf")),
	}
}

func TestSaveElection(t *testing.T) {
	ts := newTestServer(t, &chainSource{})
	e := finalizedElection()

	resp := postJSON(t, ts.URL+"/api/elections/save", SaveElectionRequest{
		Path:     "../../etc/board-vote.json",
		Election: e,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out SaveElectionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, filepath.Join(ts.exportDir, "board-vote.json"), out.Path)

	loaded, err := storage.LoadElection(out.Path)
	require.NoError(t, err)
	assert.Equal(t, e, *loaded)
}

func TestSaveElectionRejects(t *testing.T) {
	ts := newTestServer(t, &chainSource{})

	tests := []struct {
		name string
		req  SaveElectionRequest
	}{
		{"missing path", SaveElectionRequest{Election: finalizedElection()}},
		{"directory path", SaveElectionRequest{Path: "..", Election: finalizedElection()}},
		{"no roots", SaveElectionRequest{Path: "x.json", Election: models.Election{ID: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/elections/save", tt.req)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, &chainSource{})

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	create := postJSON(t, ts.URL+"/api/elections", boardVote())
	readEvents(t, create.Body)
	create.Body.Close()

	summary, err := http.Get(ts.URL + "/api/metrics")
	require.NoError(t, err)
	defer summary.Body.Close()

	var m service.MetricsResponse
	require.NoError(t, json.NewDecoder(summary.Body).Decode(&m))
	assert.Equal(t, 1, m.Succeeded)
	assert.Equal(t, 0, m.Failed)

	prom, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer prom.Body.Close()

	body, err := io.ReadAll(prom.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bootstrap_transitions_total")
	assert.Contains(t, string(body), `bootstrap_results_total{result="succeeded"} 1`)
}
