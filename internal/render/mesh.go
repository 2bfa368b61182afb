// Package render turns resident chunks into instanced face geometry and keeps
// it coherent with the frames in flight on the device.
package render

import (
	"encoding/binary"
	"fmt"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
)

// FaceSize is the encoded size of a FaceInstance in bytes.
const FaceSize = 20

// QuadVertices is the number of vertices drawn per face instance.
const QuadVertices = 4

// MaxFaces is the number of faces a fully solid chunk produces.
const MaxFaces = chunk.Volume * block.FaceCount

// FaceInstance is one visible block face.
type FaceInstance struct {
	Face     block.Face
	Texture  block.TextureID
	Position [3]int32
}

// Encode writes f to b in little-endian order. b must hold FaceSize bytes.
func (f FaceInstance) Encode(b []byte) {
	_ = b[FaceSize-1]
	binary.LittleEndian.PutUint32(b[0:], uint32(f.Face))
	binary.LittleEndian.PutUint32(b[4:], uint32(f.Texture))
	binary.LittleEndian.PutUint32(b[8:], uint32(f.Position[0]))
	binary.LittleEndian.PutUint32(b[12:], uint32(f.Position[1]))
	binary.LittleEndian.PutUint32(b[16:], uint32(f.Position[2]))
}

// DecodeFace reads a FaceInstance written by Encode.
func DecodeFace(b []byte) FaceInstance {
	_ = b[FaceSize-1]
	return FaceInstance{
		Face:    block.Face(binary.LittleEndian.Uint32(b[0:])),
		Texture: block.TextureID(binary.LittleEndian.Uint32(b[4:])),
		Position: [3]int32{
			int32(binary.LittleEndian.Uint32(b[8:])),
			int32(binary.LittleEndian.Uint32(b[12:])),
			int32(binary.LittleEndian.Uint32(b[16:])),
		},
	}
}

// AppendFaces appends the faces of every non-air block of g, scanning in
// (y, x, z) order. Each block contributes all six faces; hidden faces are
// not culled.
func AppendFaces(dst []FaceInstance, cat *block.Catalog, g *chunk.Grid, pos chunk.Pos) []FaceInstance {
	ox, oz := pos.Origin()
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			for z := 0; z < chunk.Size; z++ {
				id := g.Get(x, y, z)
				if id == block.Air {
					continue
				}
				wp := [3]int32{int32(ox + x), int32(y), int32(oz + z)}
				for _, f := range block.Faces {
					dst = append(dst, FaceInstance{
						Face:     f,
						Texture:  cat.FaceTexture(id, f),
						Position: wp,
					})
				}
			}
		}
	}
	return dst
}

// EncodeFaces writes faces back to back into b and returns the bytes used.
func EncodeFaces(b []byte, faces []FaceInstance) (int, error) {
	n := len(faces) * FaceSize
	if n > len(b) {
		return 0, fmt.Errorf("encode %d faces: buffer holds %d bytes", len(faces), len(b))
	}
	for i, f := range faces {
		f.Encode(b[i*FaceSize:])
	}
	return n, nil
}
