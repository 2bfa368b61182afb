package assets

import (
	"context"
	"fmt"
	"os"

	get "github.com/hashicorp/go-getter"
)

// Fetch downloads an asset pack from src into the directory dst.
// src is any go-getter address, e.g. "git::https://host/repo.git//assets"
// or a local path.
func Fetch(ctx context.Context, dst, src string) error {
	if dst == "" {
		return fmt.Errorf("fetch assets: empty destination")
	}
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("fetch assets: %w", err)
	}

	client := &get.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: get.ClientModeDir,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch assets from %s: %w", src, err)
	}
	return nil
}
