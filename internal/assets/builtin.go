package assets

import (
	"embed"
	"io/fs"
)

//go:embed builtin
var builtinFS embed.FS

// Builtin returns the asset pack compiled into the binary. It defines
// dirt, grass_block and stone.
func Builtin() *FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	a, err := NewFS(sub)
	if err != nil {
		panic(err)
	}
	return a
}
