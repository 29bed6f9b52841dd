package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// NetworkStatus summarizes the last completed poll work for one network.
type NetworkStatus struct {
	Network      string    `json:"network"`
	Groups       int       `json:"groups"`
	LastPolledAt time.Time `json:"last_polled_at"`
}

var (
	isReady         int32
	networkStatuses = make(map[string]*NetworkStatus)
	statusMutex     sync.RWMutex
	lastCycle       atomic.Value // time.Time
)

func SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&isReady, 1)
	} else {
		atomic.StoreInt32(&isReady, 0)
	}
}

// RecordCycle notes the completion time of a scheduler cycle.
func RecordCycle(t time.Time) {
	lastCycle.Store(t)
}

// RecordNetwork updates the per-network poll status.
func RecordNetwork(network string, groups int, polledAt time.Time) {
	statusMutex.Lock()
	defer statusMutex.Unlock()
	networkStatuses[network] = &NetworkStatus{
		Network:      network,
		Groups:       groups,
		LastPolledAt: polledAt,
	}
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	statusMutex.RLock()
	defer statusMutex.RUnlock()

	if atomic.LoadInt32(&isReady) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))

		return
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	response["networks"] = networkStatuses
	if t, ok := lastCycle.Load().(time.Time); ok {
		response["last_cycle_at"] = t
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// Serve starts the health endpoints on addr in a background goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", LivenessHandler)
	mux.HandleFunc("/readyz", ReadinessHandler)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		_ = server.ListenAndServe()
	}()
}
