package metrics

import (
	"fmt"
	"net/http"
	"time"
)

// NewServer returns an unstarted server exposing /metrics on port. The
// caller runs ListenAndServe and owns shutdown.
func NewServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/metrics", http.StatusFound)
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}
