package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/sw965/busters"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/inference"
	"github.com/sw965/busters/mathx/randx"
	"github.com/sw965/busters/sim"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile  = flag.String("config", "", "Path to YAML configuration file (default: $BUSTERS_CONFIG, then built-in defaults)")
	layoutName  = flag.String("layout", "", "Layout file or built-in layout name")
	kind        = flag.String("inference", "", "Inference kind: exact, particle or marginal")
	ghostSelect = flag.String("ghost-select", "", "Ghost move selection: weighted or max")
	episodes    = flag.Int("episodes", 0, "Number of episodes")
	ticks       = flag.Int("ticks", 0, "Maximum ticks per episode")
	workers     = flag.Int("workers", 0, "Number of parallel workers")
	seed        = flag.Uint64("seed", 0, "Random seed")
	logLevel    = flag.String("log-level", "", "Log level: trace, debug, info, warn or error")
	listLayouts = flag.Bool("list-layouts", false, "List built-in layouts and exit")
	writeConfig = flag.String("write-config", "", "Write the effective configuration to this path and exit")
)

func main() {
	flag.Parse()

	if *listLayouts {
		for _, name := range game.BuiltinLayouts() {
			fmt.Println(name)
		}
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env: %v", err)
	}

	config, err := loadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if *writeConfig != "" {
		if err := busters.SaveConfig(*writeConfig, config); err != nil {
			log.Fatalf("Error writing config: %v", err)
		}
		return
	}

	logger, err := busters.NewLogger(config.Log, os.Stderr)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		logger.WithError(err).Fatal("run failed")
	}
}

func loadConfig() (busters.Config, error) {
	path := *configFile
	if path == "" {
		path = os.Getenv("BUSTERS_CONFIG")
	}

	config := busters.DefaultConfig()
	if path != "" {
		var err error
		if config, err = busters.LoadConfig(path); err != nil {
			return busters.Config{}, err
		}
	}

	// コマンドラインで明示したフラグのみ設定ファイルを上書きする
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "layout":
			config.Layout = busters.LayoutConfig{Name: *layoutName}
		case "inference":
			config.Inference.Kind = *kind
		case "ghost-select":
			config.Ghost.Select = *ghostSelect
		case "episodes":
			config.Run.Episodes = *episodes
		case "ticks":
			config.Run.Ticks = *ticks
		case "workers":
			config.Run.Workers = *workers
		case "seed":
			config.Run.Seed = *seed
		case "log-level":
			config.Log.Level = *logLevel
		}
	})
	return config, config.Validate()
}

func run(ctx context.Context, config busters.Config, logger *logrus.Logger) error {
	engine, err := config.BuildEngine(inference.WithLogger(logger))
	if err != nil {
		return err
	}
	engine.Logger = logger

	rngs, err := randx.NewRngs(config.Run.Seed, config.Run.Workers)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"version":   Version,
		"layout":    config.Layout.Name,
		"ghosts":    engine.Layout.NumGhosts(),
		"inference": config.Inference.Kind,
		"episodes":  config.Run.Episodes,
		"workers":   config.Run.Workers,
	}).Info("starting episodes")

	records, err := engine.Playouts(ctx, config.Run.Episodes, rngs)
	if err != nil {
		return fmt.Errorf("playouts: %w", err)
	}

	s := sim.Summarize(records)
	logger.WithFields(logrus.Fields{
		"episodes":      s.Episodes,
		"ticks":         s.Ticks,
		"captures":      s.Captures,
		"hit_rate":      fmt.Sprintf("%.3f", s.HitRate),
		"hit_rate_std":  fmt.Sprintf("%.3f", s.HitRateStd),
		"mean_distance": fmt.Sprintf("%.3f", s.MeanDistance),
	}).Info("summary")
	return nil
}
