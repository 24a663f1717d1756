package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vispipe/vispipe/internal/config"
	"github.com/vispipe/vispipe/internal/health"
	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/pipeline"
	"github.com/vispipe/vispipe/internal/pixel"
	"github.com/vispipe/vispipe/internal/server"
	"github.com/vispipe/vispipe/internal/sink"
	"github.com/vispipe/vispipe/internal/source"
	"github.com/vispipe/vispipe/pkg/version"
)

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "configs/default.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version.GetInfo().Short()).Info("Starting vispipe annotation pipeline")
	log.WithField("config_path", configPath).Debug("Configuration loaded")

	appLog := logger.NewLogrusAdapter(logrus.NewEntry(log))

	// Annotation sink
	annotationSink, err := sink.New(cfg.Sink, appLog)
	if err != nil {
		log.WithError(err).Fatal("Failed to create annotation sink")
	}
	if rs, ok := annotationSink.(*sink.RedisSink); ok {
		if err := rs.Ping(context.Background()); err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		log.Info("Connected to Redis successfully")
	}

	// Annotations are delivered asynchronously so a slow sink never
	// stalls a pipeline completion.
	dispatcher := sink.NewDispatcher(annotationSink, sink.DispatcherConfig{}, appLog)

	// Frame pipeline
	processor := pipeline.NewProcessor(pipeline.Config{
		LiveViewport:    cfg.Pipeline.LiveViewport,
		DetectorTimeout: cfg.Pipeline.DetectorTimeout,
	}, demoDetector(), dispatcher.Bind(), appLog)
	processor.Start()

	// Synthetic camera feeding the pipeline
	camera := source.NewCamera(cfg.Camera, processor.Submit, appLog)
	camera.Start()

	// Health checks
	healthMgr := health.NewManager(appLog)
	healthMgr.Register(health.NewPipelineChecker(processor))
	if rs, ok := annotationSink.(*sink.RedisSink); ok {
		healthMgr.Register(health.NewSinkChecker(rs.Name(), rs))
	}

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	if cfg.Server.Enabled {
		srv := server.New(&cfg.Server, &cfg.Metrics, log, processor, healthMgr)
		if err := srv.Start(ctx); err != nil {
			log.WithError(err).Fatal("Server error")
		}
	} else {
		go healthMgr.StartPeriodicChecks(ctx, 30*time.Second)
		<-ctx.Done()
	}

	// Stop producing before draining: the camera first, then the
	// pipeline, then the sink.
	camera.Stop()
	processor.Shutdown()
	if err := dispatcher.Close(); err != nil {
		log.WithError(err).Error("Failed to close annotation sink")
	}

	log.Info("Shutdown complete")
}

// demoDetector simulates a detection model: ~30ms of work producing one
// box orbiting the frame center. Real deployments replace this with an
// inference binding.
func demoDetector() pipeline.Detector {
	var calls int
	return pipeline.DetectorFunc(func(ctx context.Context, f *pixel.Frame) (pipeline.Detection, error) {
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
			return pipeline.Detection{}, ctx.Err()
		}

		calls++
		angle := float64(calls) / 10
		return pipeline.Detection{
			Boxes: []pipeline.Box{{
				Label: "target",
				Score: 0.9,
				X:     0.4 + 0.25*math.Cos(angle),
				Y:     0.4 + 0.25*math.Sin(angle),
				W:     0.2,
				H:     0.2,
			}},
		}, nil
	})
}
