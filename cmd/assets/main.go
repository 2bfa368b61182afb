package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OCharnyshevich/voxelstream/internal/assets"
	"github.com/OCharnyshevich/voxelstream/internal/block"
)

func main() {
	var (
		src    = flag.String("src", "", "asset pack address, e.g. git::https://host/repo.git//assets")
		out    = flag.String("o", "./assets", "output dir path")
		blocks = flag.String("blocks", "dirt,grass_block", "comma-separated blocks the pack must define")
	)
	flag.Parse()

	if *src == "" {
		log.Fatal("asset pack address required")
	}
	if *out == "" {
		log.Fatal("output dir path required")
	}

	if err := os.RemoveAll(*out); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Default().Printf("start downloading assets %s", *out)
	if err := assets.Fetch(ctx, *out, *src); err != nil {
		log.Fatal(err)
	}

	pack, err := assets.Dir(*out)
	if err != nil {
		log.Fatal(err)
	}
	cat := block.NewCatalog(pack)
	if err := cat.RegisterAll(strings.Split(*blocks, ",")...); err != nil {
		log.Fatalf("validate asset pack: %v", err)
	}
	atlas, err := cat.BuildAtlas()
	if err != nil {
		log.Fatalf("validate asset pack: %v", err)
	}

	log.Default().Printf("done downloading assets %s: %d blocks, %d textures (%dx%d atlas)",
		*out, cat.Len(), atlas.Layers, atlas.Width, atlas.Height)
}
