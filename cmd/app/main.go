// Async frame-processing pipeline demo: synthetic source feeding a
// chain of background-processing nodes, with a websocket preview of
// the final output.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"async-frame-engine/internal/config"
	"async-frame-engine/internal/engine"
	"async-frame-engine/internal/frame"
	"async-frame-engine/internal/identity"
	"async-frame-engine/internal/metrics"
	"async-frame-engine/internal/pool"
	"async-frame-engine/internal/server"
	"async-frame-engine/internal/source"
	"async-frame-engine/internal/transforms"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if !*debugMode {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}

	logger.WithFields(logrus.Fields{
		"nodes":      len(cfg.Nodes),
		"pool_slots": cfg.Pool.Slots,
		"width":      cfg.Source.Width,
		"height":     cfg.Source.Height,
		"fps":        cfg.Source.FPS,
	}).Info("Starting frame-processing pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seq := identity.NewSequencer()
	recorder := metrics.NewRecorder()

	units := make([]*engine.ProcessingUnit, 0, len(cfg.Nodes))
	nodeParams := make([]engine.Params, 0, len(cfg.Nodes))
	for _, nc := range cfg.Nodes {
		t, ok := transforms.Get(nc.Transform)
		if !ok {
			logger.WithField("transform", nc.Transform).Fatal("Unknown transform")
		}
		params := t.DefaultParams()
		for k, v := range nc.Params {
			params[k] = v
		}
		if err := t.Validate(params); err != nil {
			logger.WithError(err).WithField("node", nc.Name).Fatal("Invalid node parameters")
		}

		sharing := engine.SharePooled
		if nc.Sharing == "owned" {
			sharing = engine.ShareOwned
		}
		units = append(units, engine.NewUnit(engine.Options{
			Name:      nc.Name,
			Transform: t,
			Sharing:   sharing,
			Pool:      pool.New(cfg.Pool.Slots),
			Sequencer: seq,
			Logger:    logger,
			Observer:  recorder,
		}))
		nodeParams = append(nodeParams, params)
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(logger)
		go func() {
			if err := srv.Run(ctx, cfg.Server.Port); err != nil {
				logger.WithError(err).Error("Preview server failed")
			}
		}()
	}

	// Pumps: each unit's freshest result becomes the next unit's
	// input; the last unit feeds the preview.
	var pumps sync.WaitGroup
	for i := 0; i < len(units)-1; i++ {
		next := units[i+1]
		params := nodeParams[i+1]
		out := units[i].Outputs()
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			for f := range out.Results() {
				next.Submit(f, params)
			}
		}()
	}
	lastOut := units[len(units)-1].Outputs()
	pumps.Add(1)
	go func() {
		defer pumps.Done()
		for f := range lastOut.Results() {
			if srv != nil {
				srv.Publish(f)
			}
			f.Close()
		}
	}()

	go reportStats(ctx, logger, recorder, units)

	producer := source.New(cfg.Source.Width, cfg.Source.Height, cfg.Source.FPS, seq, logger)
	first := units[0]
	firstParams := nodeParams[0]
	producer.Run(ctx, func(f *frame.Frame) {
		first.Submit(f, firstParams)
	})

	// Source stopped: close units front to back so each drains before
	// its consumer's channel closes.
	for _, u := range units {
		u.Close()
	}
	pumps.Wait()

	logger.Info("Pipeline shut down gracefully")
}

func reportStats(ctx context.Context, logger *logrus.Logger, recorder *metrics.Recorder, units []*engine.ProcessingUnit) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := recorder.Snapshot()
			for _, u := range units {
				s, ok := snapshot[u.Name()]
				if !ok {
					continue
				}
				logger.WithFields(logrus.Fields{
					"unit":        u.Name(),
					"completions": s.Completions,
					"no_results":  s.NoResults,
					"coalesced":   u.Coalesced(),
					"mean_ms":     s.MeanMs,
					"p95_ms":      s.P95Ms,
				}).Info("Unit statistics")
			}
		}
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
