package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/healthops/selection"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler reports 200 while the overall status is healthy or
// warning, and 503 when it is critical or no cycle has completed.
func ReadinessHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		snap, ok := e.Snapshot()
		switch {
		case !ok:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("STARTING"))
		case snap.OverallStatus == StatusHealthy:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		case snap.OverallStatus == StatusWarning:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("WARNING"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("CRITICAL"))
		}
	}
}

// SnapshotResponse is the JSON body of the snapshot endpoint. GaugeStatus
// classifies the gauges that have a threshold band; it is for display only
// and does not feed the overall status.
type SnapshotResponse struct {
	HealthSnapshot
	GaugeStatus map[string]Status   `json:"gaugeStatus"`
	Selection   selection.Selection `json:"selection"`
}

// SnapshotHandler serves the latest snapshot as JSON.
func SnapshotHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := e.Snapshot()
		if !ok {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": ErrNotInitialized.Error(),
			})
			return
		}
		WriteJSON(w, http.StatusOK, SnapshotResponse{
			HealthSnapshot: snap,
			GaugeStatus:    e.Thresholds().ClassifyGauges(snap.Gauges),
			Selection:      e.Selection(r.Context()),
		})
	}
}

// HistoryHandler serves the trend window as a JSON array, oldest first.
func HistoryHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, e.History())
	}
}

// ThresholdsHandler serves the threshold bands.
func ThresholdsHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, e.Thresholds().Bands())
	}
}

// EventsHandler streams status change events as server-sent events until the
// client disconnects or the engine closes.
func EventsHandler(e *Engine, keepAlive time.Duration) http.HandlerFunc {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		events, cancel := e.Subscribe(0)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case ev, open := <-events:
				if !open {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: status-change\ndata: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

