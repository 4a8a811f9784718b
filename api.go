package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// StatusServer exposes what the window manager is doing over HTTP. It only
// reads state shared with the event loop and never talks to the X server.
type StatusServer struct {
	addr string
	wm   *WM
}

func jsonResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	slog.Debug("Status request", "status", status, "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	e := json.NewEncoder(w)
	e.Encode(data)
}

func NewStatusServer(wm *WM, listenAddr string) *StatusServer {
	return &StatusServer{addr: listenAddr, wm: wm}
}

// Handler returns the router serving the status endpoints.
func (s *StatusServer) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/screen", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, r, http.StatusOK,
			map[string]interface{}{
				"screen": s.wm.screen,
				"heads":  s.wm.Heads(),
			},
		)
	}).Methods("GET")

	router.HandleFunc("/atoms", func(w http.ResponseWriter, r *http.Request) {
		names := s.wm.atoms.Names()
		if names == nil {
			jsonResponse(w, r, http.StatusServiceUnavailable,
				map[string]interface{}{"error": ErrAtomNotResolved.Error()})
			return
		}
		jsonResponse(w, r, http.StatusOK,
			map[string]interface{}{
				"items": names,
			},
		)
	}).Methods("GET")

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, r, http.StatusOK, s.wm.stats.Snapshot())
	}).Methods("GET")

	router.HandleFunc("/events", makeWSHandler(streamFeed(s.wm.feed))).Methods("GET")

	router.PathPrefix("/").Handler(http.NotFoundHandler())
	return router
}

// Serve listens until ctx is done. It satisfies suture.Service.
func (s *StatusServer) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 1 * time.Second,
		MaxHeaderBytes:    1 << 16,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errC := make(chan error, 1)
	go func() {
		slog.Info("Status server listening", "url", "http://"+s.addr)
		errC <- server.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("Status server shutdown", "error", err)
		}
		return ctx.Err()
	}
}

func (s *StatusServer) String() string {
	return "status-server"
}
