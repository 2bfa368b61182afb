package block

import "fmt"

// Face is one of the six axis-aligned faces of a block.
type Face uint32

const (
	North Face = iota
	South
	West
	East
	Top
	Bottom
)

// FaceCount is the number of faces of a block.
const FaceCount = 6

// Faces lists every face in emission order.
var Faces = [FaceCount]Face{North, South, West, East, Top, Bottom}

var faceNames = [FaceCount]string{"north", "south", "west", "east", "top", "bottom"}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("face(%d)", uint32(f))
}

// ParseFace resolves a face direction name as used in block definitions.
func ParseFace(name string) (Face, error) {
	for i, n := range faceNames {
		if n == name {
			return Face(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFace, name)
}
