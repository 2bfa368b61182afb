// Package game wires the world, the mesh pool and the observer into a
// fixed-rate loop.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/config"
	"github.com/OCharnyshevich/voxelstream/internal/player"
	"github.com/OCharnyshevich/voxelstream/internal/render"
	"github.com/OCharnyshevich/voxelstream/internal/render/gpu"
	"github.com/OCharnyshevich/voxelstream/internal/world"
	"github.com/OCharnyshevich/voxelstream/internal/world/gen"
)

// AspectRatio of the headless camera.
const AspectRatio = 16.0 / 9.0

// Store persists chunk edits and the observer between runs.
type Store interface {
	world.EditStore
	LoadObserver() (*player.Position, error)
	SaveObserver(pos player.Position) error
}

// Game owns every component of a streaming session. It runs on a single
// goroutine.
type Game struct {
	cfg   *config.Config
	log   *slog.Logger
	store Store

	catalog  *block.Catalog
	atlas    *block.Atlas
	world    *world.Manager
	pool     *render.Pool
	observer *player.Observer

	walk  player.Intent
	ticks int
}

// New builds a session from cfg. src provides block definitions and
// textures; store may be nil to run without persistence.
func New(cfg *config.Config, dev gpu.Device, src block.Source, store Store, log *slog.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	cat := block.NewCatalog(src)
	if err := cat.RegisterAll(cfg.Blocks...); err != nil {
		return nil, fmt.Errorf("register blocks: %w", err)
	}
	atlas, err := cat.BuildAtlas()
	if err != nil {
		return nil, fmt.Errorf("build texture atlas: %w", err)
	}
	log.Info("block catalog ready", "blocks", cat.Len(), "textures", cat.TextureCount())

	var generator gen.Generator
	switch cfg.Generator {
	case config.GeneratorFlat:
		generator = gen.NewFlat(cfg.FlatHeight)
	default:
		generator = gen.NewTerrain(cfg.Seed)
	}

	opts := []world.Option{world.WithLogger(log)}
	if store != nil {
		opts = append(opts, world.WithEditStore(store))
	}
	w := world.NewManager(cat, generator, opts...)

	pool, err := render.NewPool(dev, cat,
		render.WithLogger(log),
		render.WithFenceTimeout(cfg.FenceTimeout),
		render.WithAcquireTimeout(cfg.AcquireTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create mesh pool: %w", err)
	}
	w.Subscribe(pool)

	camera := render.NewCamera(AspectRatio)
	pool.BindCamera(camera)

	spawn := mgl32.Vec3{0.5, float32(w.SpawnHeight(0, 0)) + 1, 0.5}
	observer := player.NewObserver(w, camera, spawn)

	g := &Game{
		cfg:      cfg,
		log:      log,
		store:    store,
		catalog:  cat,
		atlas:    atlas,
		world:    w,
		pool:     pool,
		observer: observer,
		walk:     walkIntent(cfg.Walk),
	}

	if store != nil {
		saved, err := store.LoadObserver()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("load observer: %w", err)
		}
		if saved != nil {
			observer.SetPosition(*saved)
			log.Info("restored observer", "x", saved.X, "y", saved.Y, "z", saved.Z)
		}
	}

	if err := w.LoadAutomatic(observer.BlockPos()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("load initial chunks: %w", err)
	}
	return g, nil
}

func walkIntent(dir string) player.Intent {
	switch dir {
	case config.WalkForward:
		return player.Intent{Forward: true}
	case config.WalkBackward:
		return player.Intent{Back: true}
	case config.WalkLeft:
		return player.Intent{Left: true}
	case config.WalkRight:
		return player.Intent{Right: true}
	default:
		return player.Intent{}
	}
}

// Catalog returns the block catalog.
func (g *Game) Catalog() *block.Catalog { return g.catalog }

// Atlas returns the texture atlas built from the catalog.
func (g *Game) Atlas() *block.Atlas { return g.atlas }

// World returns the chunk manager.
func (g *Game) World() *world.Manager { return g.world }

// Pool returns the mesh pool.
func (g *Game) Pool() *render.Pool { return g.pool }

// Observer returns the observer.
func (g *Game) Observer() *player.Observer { return g.observer }

// Ticks returns the number of completed ticks.
func (g *Game) Ticks() int { return g.ticks }

// SetWalk replaces the movement applied every tick.
func (g *Game) SetWalk(in player.Intent) { g.walk = in }

// Look forwards a mouse position to the observer.
func (g *Game) Look(x, y float64) { g.observer.Look(x, y) }

// DestroyBlock removes the block the observer is looking at.
func (g *Game) DestroyBlock() (world.BlockPos, bool) {
	return g.observer.DestroyBlock()
}

// Tick advances the observer, streams chunks around it and renders a frame.
func (g *Game) Tick() error {
	g.observer.Apply(g.walk)
	g.observer.Step()

	if err := g.world.LoadAutomatic(g.observer.BlockPos()); err != nil {
		return fmt.Errorf("tick %d: %w", g.ticks, err)
	}
	if err := g.pool.Render(g.observer.Eye()); err != nil {
		return fmt.Errorf("tick %d: render: %w", g.ticks, err)
	}
	g.ticks++
	return nil
}

// Run ticks at the configured rate until ctx is cancelled, the tick budget
// is spent or a tick fails.
func (g *Game) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.log.Info("game started",
		"generator", g.cfg.Generator,
		"seed", g.cfg.Seed,
		"tickRate", g.cfg.TickRate,
		"ticks", g.cfg.Ticks,
	)

	for {
		select {
		case <-ctx.Done():
			g.log.Info("game stopping", "ticks", g.ticks)
			return nil
		case <-ticker.C:
		}

		if err := g.Tick(); err != nil {
			return err
		}
		if g.ticks%g.cfg.TickRate == 0 {
			st := g.pool.Stats()
			pos := g.observer.BlockPos()
			g.log.Debug("streaming",
				"tick", g.ticks,
				"x", pos.X, "y", pos.Y, "z", pos.Z,
				"resident", g.world.Len(),
				"slots", st.Slots,
				"free", st.Free,
				"retired", st.Retired,
			)
		}
		if g.cfg.Ticks > 0 && g.ticks >= g.cfg.Ticks {
			g.log.Info("tick budget reached", "ticks", g.ticks)
			return nil
		}
	}
}

// Close persists the session and releases device resources.
func (g *Game) Close() error {
	var errs []error
	if g.store != nil {
		if err := g.world.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := g.store.SaveObserver(g.observer.GetPosition()); err != nil {
			errs = append(errs, fmt.Errorf("save observer: %w", err))
		}
	}
	if err := g.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
