package storage

import "github.com/OCharnyshevich/voxelstream/internal/player"

// ObserverData is the serializable representation of the observer's state.
type ObserverData struct {
	Position PositionData `json:"position"`
}

// PositionData holds the observer's world position and orientation.
type PositionData struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Z     float32 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

func positionData(p player.Position) PositionData {
	return PositionData{X: p.X, Y: p.Y, Z: p.Z, Yaw: p.Yaw, Pitch: p.Pitch}
}

func (d PositionData) toPosition() player.Position {
	return player.Position{X: d.X, Y: d.Y, Z: d.Z, Yaw: d.Yaw, Pitch: d.Pitch}
}
