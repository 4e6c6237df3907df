package report

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongseonghan/eqbench/internal/bench"
)

func sampleResults() []bench.PointResult {
	return []bench.PointResult{
		{
			Method: bench.MethodDFE, EbNoDB: 8,
			Errors: 210, Bits: 100352, Blocks: 49,
			BER: 2.093e-3, TheoryBER: 1.909e-4,
			Burst: bench.BurstStats{Bursts: 180, MaxLen: 4, MeanLen: 1.2},
		},
		{
			Method: bench.MethodCoded, EbNoDB: 12,
			Errors: 3, Bits: 24576, Blocks: 20,
			BER: 1.2e-4,
			Coded: &bench.CodedResult{Frames: 20, Recovered: 20, ErasedShards: 1},
		},
	}
}

func TestPSD_PeakAtToneBin(t *testing.T) {
	const n, k = 128, 16
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * k * float64(i) / n)
	}

	psd := PSD(x)
	require.Len(t, psd, n/2+1)

	peak := 0
	for i, v := range psd {
		if v > psd[peak] {
			peak = i
		}
	}
	assert.Equal(t, k, peak)
	for _, v := range psd {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestPSD_Empty(t *testing.T) {
	assert.Nil(t, PSD(nil))
}

func TestRenderTable(t *testing.T) {
	var sb strings.Builder
	RenderTable(&sb, sampleResults())

	out := sb.String()
	assert.Contains(t, out, "dfe")
	assert.Contains(t, out, "2.093e-03")
	assert.Contains(t, out, "20/20 frames")
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteJSON(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []bench.PointResult
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, bench.MethodDFE, got[0].Method)
	assert.NotNil(t, got[1].Coded)
	assert.Equal(t, 20, got[1].Coded.Recovered)
}

func TestHub_BroadcastsToViewer(t *testing.T) {
	hub := NewHub(nil)

	srv := httptest.NewServer(http.HandlerFunc(hub.handleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens in the upgrade handler; wait for it.
	require.Eventually(t, hub.hasClients, time.Second, 10*time.Millisecond)

	hub.PointDone(sampleResults()[0])

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "pointDone", msg.Type)
}

func TestHub_SkipsSpectrumWithoutViewers(t *testing.T) {
	hub := NewHub(nil)
	// Must not block or panic with zero clients.
	hub.BlockProcessed(bench.MethodLinear, 6, bench.Accumulator{Errors: 1, Bits: 512}, []float64{1, -1, 1, -1})
}
