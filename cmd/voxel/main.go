package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OCharnyshevich/voxelstream/internal/assets"
	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/config"
	"github.com/OCharnyshevich/voxelstream/internal/game"
	"github.com/OCharnyshevich/voxelstream/internal/render/gpu"
	"github.com/OCharnyshevich/voxelstream/internal/storage"
)

func main() {
	cfg := config.DefaultConfig()

	var blocks string
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "terrain seed")
	flag.StringVar(&cfg.Generator, "generator", cfg.Generator, "terrain generator: terrain or flat")
	flag.IntVar(&cfg.FlatHeight, "flat-height", cfg.FlatHeight, "grass height of the flat generator")
	flag.StringVar(&blocks, "blocks", strings.Join(cfg.Blocks, ","), "comma-separated blocks in registration order")
	flag.StringVar(&cfg.AssetDir, "assets", cfg.AssetDir, "asset pack directory (empty uses the builtin pack)")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory for config, edits and observer state")
	flag.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "ticks per second")
	flag.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "stop after this many ticks (0 runs until interrupted)")
	flag.DurationVar(&cfg.FenceTimeout, "fence-timeout", cfg.FenceTimeout, "maximum wait for a frame in flight")
	flag.DurationVar(&cfg.AcquireTimeout, "acquire-timeout", cfg.AcquireTimeout, "maximum wait for a presentable image")
	flag.StringVar(&cfg.Walk, "walk", cfg.Walk, "scripted movement: forward, backward, left or right")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if explicit["blocks"] {
		cfg.Blocks = strings.Split(blocks, ",")
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// os.Exit skips deferred calls; close the edit database first.
	fatal := func(msg string, err error) {
		log.Error(msg, "error", err)
		store.Close()
		os.Exit(1)
	}

	firstRun := !store.HasConfig()
	fromFile := *cfg
	fromFile.Blocks = append([]string(nil), cfg.Blocks...)
	if err := store.LoadConfig(&fromFile); err != nil {
		fatal("load config", err)
	}
	config.Merge(cfg, &fromFile, explicit)

	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	var src block.Source = assets.Builtin()
	if cfg.AssetDir != "" {
		dir, err := assets.Dir(cfg.AssetDir)
		if err != nil {
			fatal("open asset pack "+cfg.AssetDir, err)
		}
		src = dir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, err := game.New(cfg, gpu.NewHeadless(gpu.DefaultImageCount), src, store, log)
	if err != nil {
		cancel()
		fatal("start game", err)
	}

	runErr := g.Run(ctx)
	if err := g.Close(); err != nil {
		log.Error("shut down game", "error", err)
	}
	if runErr != nil {
		cancel()
		fatal("game error", runErr)
	}

	if firstRun {
		if err := store.SaveConfig(cfg); err != nil {
			log.Error("save config", "error", err)
		}
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
