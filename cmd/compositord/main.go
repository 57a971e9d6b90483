// Command compositord composites raw planar video files into one output
// stream at a fixed cadence, serving health and Prometheus metrics over
// HTTP while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/platform/config"
	"github.com/gogpu/compositor/internal/platform/logger"
	"github.com/gogpu/compositor/internal/platform/metrics"
)

// ptsUnit is the pts clock rate: milliseconds.
const ptsUnit = 1000

func main() {
	configPath := flag.String("config", "compositord.yaml", "path to the YAML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "compositord:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.Load(""); err != nil {
		return err
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	log := logger.New(
		config.GetEnv("COMPOSITOR_LOG_LEVEL", cfg.Log.Level),
		config.GetEnv("COMPOSITOR_LOG_FORMAT", cfg.Log.Format),
	)
	compositor.SetLogger(log)

	outFormat, err := cfg.Output.videoFormat()
	if err != nil {
		return err
	}

	opts := []compositor.Option{compositor.WithLogger(log)}
	if config.GetEnvBool("COMPOSITOR_FALLBACK_ADAPTER", false) {
		opts = append(opts, compositor.WithFallbackAdapter())
	}
	st, err := compositor.New(outFormat, opts...)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()

	readers, err := openStreams(st, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range readers {
			r.close()
		}
	}()

	out, err := os.Create(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := serveHTTP(cfg.HTTP.Addr, m, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("compositord started",
		"output", cfg.Output.Path, "streams", len(readers), "http", cfg.HTTP.Addr)
	return tickLoop(ctx, st, readers, out, outFormat, m, log)
}

// streamReader feeds one raw planar file into the compositor frame by
// frame, stamping each frame from its index and nominal framerate.
type streamReader struct {
	id        compositor.VideoID
	file      *os.File
	frameSize int
	period    uint64
	nextIndex uint64
	exhausted bool
	buf       []byte
}

func (r *streamReader) close() { _ = r.file.Close() }

// feed uploads the next frame if the file has one left.
func (r *streamReader) feed(st *compositor.State, m *metrics.Metrics) error {
	if r.exhausted {
		return nil
	}
	if _, err := io.ReadFull(r.file, r.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.exhausted = true
			return nil
		}
		return fmt.Errorf("read stream %d: %w", r.id, err)
	}
	pts := r.nextIndex * r.period
	if err := st.UploadFrame(r.id, r.buf, pts); err != nil {
		return fmt.Errorf("upload stream %d: %w", r.id, err)
	}
	r.nextIndex++
	m.FramesInTotal.WithLabelValues(strconv.FormatUint(uint64(r.id), 10)).Inc()
	return nil
}

func openStreams(st *compositor.State, cfg *Config, m *metrics.Metrics) ([]*streamReader, error) {
	readers := make([]*streamReader, 0, len(cfg.Streams))
	for _, sc := range cfg.Streams {
		f, err := sc.videoFormat()
		if err != nil {
			return nil, err
		}
		chain, err := buildTransformations(st.Registry(), sc.Transformations)
		if err != nil {
			return nil, fmt.Errorf("stream %d: %w", sc.ID, err)
		}
		id := compositor.VideoID(sc.ID)
		err = st.AddVideo(id, f, compositor.VideoConfig{
			Placement:       sc.Placement.placement(),
			Transformations: chain,
		})
		if err != nil {
			return nil, fmt.Errorf("add stream %d: %w", sc.ID, err)
		}
		m.ActiveStreams.Inc()

		file, err := os.Open(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("open stream %d: %w", sc.ID, err)
		}
		size := f.FrameSize()
		readers = append(readers, &streamReader{
			id:        id,
			file:      file,
			frameSize: size,
			period:    f.Framerate.FramePeriod(ptsUnit),
			buf:       make([]byte, size),
		})
	}
	return readers, nil
}

func buildTransformations(reg *compositor.Registry, tcs []TransformationConfig) ([]compositor.Transformation, error) {
	if len(tcs) == 0 {
		return nil, nil
	}
	chain := make([]compositor.Transformation, 0, len(tcs))
	for _, tc := range tcs {
		t, err := reg.Build(tc.Key, tc.Args)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// tickLoop drives the compositor at the output framerate until every
// input file is exhausted or the context is cancelled.
func tickLoop(ctx context.Context, st *compositor.State, readers []*streamReader,
	out io.Writer, outFormat compositor.VideoFormat, m *metrics.Metrics, log *slog.Logger) error {

	period := outFormat.Framerate.FramePeriod(ptsUnit)
	ticker := time.NewTicker(time.Duration(period) * time.Millisecond)
	defer ticker.Stop()

	frame := make([]byte, outFormat.FrameSize())
	composed := 0

	for {
		select {
		case <-ctx.Done():
			log.Info("compositord stopped", "frames", composed)
			return nil
		case <-ticker.C:
		}

		done := true
		for _, r := range readers {
			if err := r.feed(st, m); err != nil {
				return err
			}
			if !r.exhausted {
				done = false
			}
		}

		if !st.AllFramesReady(period) {
			if done {
				log.Info("all inputs exhausted", "frames", composed)
				return nil
			}
			continue
		}

		start := time.Now()
		pts, err := st.DrawInto(ctx, frame)
		if err != nil {
			return fmt.Errorf("draw: %w", err)
		}
		m.DrawDuration.Observe(time.Since(start).Seconds())
		m.TicksTotal.Inc()

		if _, err := out.Write(frame); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		composed++
		log.Debug("frame written", "pts", pts, "index", composed)

		// The final buffered frames stay inside the window, so without
		// this the loop would re-compose them forever.
		if done {
			log.Info("all inputs exhausted", "frames", composed)
			return nil
		}
	}
}

func serveHTTP(addr string, m *metrics.Metrics, log *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("http server stopped", "error", err)
		}
	}()
	return srv
}
