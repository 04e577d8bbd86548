package main

import (
	"fmt"
	"net/http"

	"cuecast.ai/internal/runtime"
	"cuecast.ai/internal/transport/observer"
	"cuecast.ai/internal/transport/ws"
)

type droppedCounter interface {
	Dropped() uint64
}

type serverDeps struct {
	loop   *runtime.Loop
	bridge *ws.Server
	hub    *observer.Hub
	// index may be nil.
	index droppedCounter
}

func buildMux(d serverDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := d.loop.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP cuecast_frames_processed Frames run through the cue engine.\n")
		fmt.Fprintf(rw, "# TYPE cuecast_frames_processed counter\n")
		fmt.Fprintf(rw, "cuecast_frames_processed %d\n", st.Processed)

		fmt.Fprintf(rw, "# HELP cuecast_frames_dropped Frames dropped because the inbox was full.\n")
		fmt.Fprintf(rw, "# TYPE cuecast_frames_dropped counter\n")
		fmt.Fprintf(rw, "cuecast_frames_dropped %d\n", st.Dropped)

		fmt.Fprintf(rw, "# HELP cuecast_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE cuecast_queue_depth gauge\n")
		fmt.Fprintf(rw, "cuecast_queue_depth{queue=%q} %d\n", "inbox", st.Queued)

		fmt.Fprintf(rw, "# HELP cuecast_sessions Connected clients.\n")
		fmt.Fprintf(rw, "# TYPE cuecast_sessions gauge\n")
		fmt.Fprintf(rw, "cuecast_sessions{kind=%q} %d\n", "bridge", d.bridge.Sessions())
		fmt.Fprintf(rw, "cuecast_sessions{kind=%q} %d\n", "observer", d.hub.Subscribers())

		fmt.Fprintf(rw, "# HELP cuecast_dropped Messages dropped by a bounded queue.\n")
		fmt.Fprintf(rw, "# TYPE cuecast_dropped counter\n")
		fmt.Fprintf(rw, "cuecast_dropped{queue=%q} %d\n", "observer", d.hub.Dropped())
		if d.index != nil {
			fmt.Fprintf(rw, "cuecast_dropped{queue=%q} %d\n", "index", d.index.Dropped())
		}
	})

	mux.HandleFunc("/v1/bridge", d.bridge.Handler())
	mux.HandleFunc("/v1/observer", d.hub.WSHandler())
	mux.HandleFunc("/v1/observer/bootstrap", d.hub.BootstrapHandler())
	return mux
}
