package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cuecast.ai/internal/cues"
	"cuecast.ai/internal/persistence/framelog"
	"cuecast.ai/internal/persistence/overlayfile"
	"cuecast.ai/internal/runtime"
	"cuecast.ai/internal/transport/observer"
	"cuecast.ai/internal/transport/ws"
	"cuecast.ai/internal/tuning"
)

var (
	serveAddr    string
	serveOut     string
	serveNames   string
	serveNamesDB string
	serveRecord  string
	serveIndex   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control loop with the bridge and observer endpoints",
	Long: `Runs the control loop. Agents connect to /v1/bridge; renderers either read
the overlay file or subscribe on /v1/observer (loopback only).

Example:
  cuecast-server serve --names ./configs/names.json --record ./data/frames`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "http listen address (overrides server.addr)")
	serveCmd.Flags().StringVarP(&serveOut, "out", "o", "", "overlay document path (overrides publish_path)")
	serveCmd.Flags().StringVar(&serveNames, "names", "", "display-name table (JSON, hot reloaded)")
	serveCmd.Flags().StringVar(&serveNamesDB, "names-db", "", "display-name table (SQLite, used when --names is empty)")
	serveCmd.Flags().StringVar(&serveRecord, "record", "", "directory for frame recordings (empty disables)")
	serveCmd.Flags().StringVar(&serveIndex, "index", "", "SQLite frame index path (empty disables)")
}

func loadServeTuning(cmd *cobra.Command) (tuning.Tuning, error) {
	tune, err := tuning.Load(configPath)
	if err != nil {
		return tune, fmt.Errorf("load tuning: %w", err)
	}
	if cmd.Flags().Changed("addr") {
		tune.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("out") {
		tune.PublishPath = serveOut
	}
	return tune, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tune, err := loadServeTuning(cmd)
	if err != nil {
		return err
	}

	resolver, watcher := loadNames(ctx, serveNames, serveNamesDB, tune.Names.Lang, tune.Names.Suffixes, logger)
	logger.Info("name table", zap.Int("entries", resolver.Len()))

	idx, err := openFrameIndex(serveIndex, logger)
	if err != nil {
		return fmt.Errorf("open frame index: %w", err)
	}

	grid := ws.Grid(tune)
	hub := observer.NewHub(grid, tune.Server.ObserverQueue, logger.Named("observer"))
	opts := runtime.Options{
		InboxSize: tune.Server.InboxSize,
		Sinks:     []runtime.Sink{overlayfile.NewPublisher(tune.PublishPath), hub},
		Log:       logger.Named("loop"),
	}
	if idx != nil {
		defer idx.Close()
		opts.Index = idx
	}
	if serveRecord != "" {
		rec := framelog.NewRecorder(serveRecord)
		defer rec.Close()
		opts.Recorder = rec
		logger.Info("recording frames", zap.String("dir", serveRecord))
	}

	engine := cues.New(tune, resolver, logger.Named("engine"))
	loop := runtime.New(engine, opts)
	bridge := ws.NewServer(loop, grid, tune.Server.MaxSessions, logger.Named("bridge"))

	deps := serverDeps{loop: loop, bridge: bridge, hub: hub}
	if idx != nil {
		deps.index = idx
	}
	srv := &http.Server{
		Addr:              tune.Server.Addr,
		Handler:           buildMux(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("publish_path", tune.PublishPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})

	err = g.Wait()
	st := loop.Stats()
	logger.Info("stopped", zap.Uint64("processed", st.Processed), zap.Uint64("dropped", st.Dropped))
	return err
}
