package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/moffa90/go-bflb/datagram"
	"github.com/moffa90/go-bflb/internal/cmd/channel"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the UDP flashing command service",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Sources: cli.EnvVars("BFLB_SERVE_ADDR"),
				Usage:   "UDP listen address",
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Sources: cli.EnvVars("BFLB_METRICS_ADDR"),
				Usage:   "HTTP address for /metrics (empty disables)",
				Value:   ":9090",
			},
			&cli.StringFlag{
				Name:     "worker",
				Sources:  cli.EnvVars("BFLB_WORKER"),
				Usage:    "Program run for each request; the command line is appended to its arguments",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "worker-arg",
				Sources: cli.EnvVars("BFLB_WORKER_ARGS"),
				Usage:   "Fixed argument passed to the worker before the request arguments",
			},
			&cli.DurationFlag{
				Name:    "worker-timeout",
				Sources: cli.EnvVars("BFLB_WORKER_TIMEOUT"),
				Usage:   "Maximum run time of one request (0 = unlimited)",
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Sources: cli.EnvVars("BFLB_SESSION_TTL"),
				Usage:   "How long a handshake waits for its payload",
				Value:   30 * time.Second,
			},
		}, channel.Flags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := channel.Options(cmd)
			if err != nil {
				return err
			}
			opts = append(opts,
				datagram.WithSessionTTL(cmd.Duration("session-ttl")),
				datagram.WithMetrics(prometheus.DefaultRegisterer),
				datagram.WithLogger(log.Default()),
			)

			worker := &execWorker{
				path:    cmd.String("worker"),
				args:    cmd.StringSlice("worker-arg"),
				timeout: cmd.Duration("worker-timeout"),
				logger:  log.Default(),
			}
			return run(ctx, cmd.String("addr"), cmd.String("metrics-addr"), worker, opts)
		},
	}
}

func run(ctx context.Context, addr, metricsAddr string, worker datagram.Worker, opts []datagram.Option) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv, err := datagram.NewServer(conn, worker, opts...)
	if err != nil {
		_ = conn.Close()
		return err
	}

	// A "stop" datagram ends Serve without cancelling ctx; the metrics
	// listener has to follow it down.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Serve(ctx)
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		hs := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info("metrics listening", "addr", metricsAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return hs.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	stats := srv.Stats()
	log.Info("service stopped", "total", stats.Total, "succeeded", stats.Succeeded, "rejected", stats.Rejected)
	return nil
}
