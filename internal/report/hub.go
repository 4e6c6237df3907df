// Package report contains the result sinks: a console table, JSON export,
// and a live WebSocket hub that streams sweep progress and equalized-output
// spectra to any attached viewer. Sinks never feed data back into the
// measurement.
package report

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/jeongseonghan/eqbench/internal/bench"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local viewers only
	},
}

// wsMessage is the envelope for every broadcast.
type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// progressPayload is sent after every processed block.
type progressPayload struct {
	Method string  `json:"method"`
	EbNoDB float64 `json:"ebNoDB"`
	Errors int     `json:"errors"`
	Bits   int     `json:"bits"`
	BER    float64 `json:"ber"`
}

// spectrumPayload carries the PSD of an equalized block in dB.
type spectrumPayload struct {
	Method string    `json:"method"`
	EbNoDB float64   `json:"ebNoDB"`
	PSD    []float64 `json:"psd"`
}

// Hub manages viewer connections and implements bench.Reporter.
type Hub struct {
	logger  *log.Logger
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Serve listens on addr and accepts viewer connections on /ws.
func (h *Hub) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	return http.ListenAndServe(addr, mux)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	h.addClient(conn)

	// Viewers only listen; the read loop just detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.removeClient(conn)
				return
			}
		}
	}()
}

func (h *Hub) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.logger.Info("viewer connected", "total", len(h.clients))
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
	h.logger.Info("viewer disconnected", "remaining", len(h.clients))
}

func (h *Hub) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			go h.removeClient(conn)
		}
	}
}

func (h *Hub) hasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// PointStarted implements bench.Reporter.
func (h *Hub) PointStarted(method bench.Method, ebNoDB float64) {
	h.broadcast(wsMessage{Type: "pointStarted", Payload: progressPayload{
		Method: string(method),
		EbNoDB: ebNoDB,
	}})
}

// BlockProcessed implements bench.Reporter. The equalized block, when
// present, is broadcast as a power spectral density for live display.
func (h *Hub) BlockProcessed(method bench.Method, ebNoDB float64, acc bench.Accumulator, equalized []float64) {
	if !h.hasClients() {
		return
	}
	h.broadcast(wsMessage{Type: "progress", Payload: progressPayload{
		Method: string(method),
		EbNoDB: ebNoDB,
		Errors: acc.Errors,
		Bits:   acc.Bits,
		BER:    acc.BER(),
	}})
	if len(equalized) > 0 {
		h.broadcast(wsMessage{Type: "spectrum", Payload: spectrumPayload{
			Method: string(method),
			EbNoDB: ebNoDB,
			PSD:    PSD(equalized),
		}})
	}
}

// PointDone implements bench.Reporter.
func (h *Hub) PointDone(res bench.PointResult) {
	h.broadcast(wsMessage{Type: "pointDone", Payload: res})
}
