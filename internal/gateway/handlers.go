package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"daytraderv1/internal/model"
	"daytraderv1/internal/portfolio"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Directory is the read-only store surface the REST endpoints need.
type Directory interface {
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	GetService(ctx context.Context, id int64) (*model.Service, error)
	ListTransactions(ctx context.Context, serviceID int64) ([]model.Transaction, error)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers the WebSocket endpoint and the read-only REST
// surface on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, dir Directory, book *portfolio.Book, processStart time.Time) {
	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.Register(conn)
	})

	// REST: active trading services
	mux.HandleFunc("/api/services", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		services, err := dir.ListActiveServices(r.Context())
		if err != nil {
			http.Error(w, `{"error":"list failed"}`, http.StatusInternalServerError)
			return
		}
		if services == nil {
			services = []model.Service{}
		}
		json.NewEncoder(w).Encode(services)
	})

	// REST: one service with its transaction history
	mux.HandleFunc("/api/services/detail", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, `{"error":"id is required"}`, http.StatusBadRequest)
			return
		}

		svc, err := dir.GetService(r.Context(), id)
		if err == model.ErrServiceNotFound {
			http.Error(w, `{"error":"service not found"}`, http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
			return
		}

		txns, err := dir.ListTransactions(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
			return
		}
		if txns == nil {
			txns = []model.Transaction{}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"service":      svc,
			"transactions": txns,
		})
	})

	// REST: account roll-up across all active services
	mux.HandleFunc("/api/portfolio", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		sum, err := book.Snapshot(r.Context())
		if err != nil {
			http.Error(w, `{"error":"snapshot failed"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(sum)
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := true
		if err := hub.Rdb.Ping(r.Context()).Err(); err != nil {
			redisOK = false
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
