// Package player holds the observer whose position drives chunk residency.
package player

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/render"
	"github.com/OCharnyshevich/voxelstream/internal/world"
)

const (
	// Acceleration is the magnitude of the acceleration applied per step
	// while any movement is requested.
	Acceleration = 0.1
	// MaxSpeed caps the velocity length.
	MaxSpeed = 0.5
	// MaxPitch limits looking up and down, in degrees.
	MaxPitch = 89.0
	// Reach is how far DestroyBlock looks for a target.
	Reach = 10
)

// Blocks is the world access the observer needs.
type Blocks interface {
	GetBlock(p world.BlockPos) block.ID
	SetBlock(p world.BlockPos, id block.ID)
}

// Intent is the movement requested for one step.
type Intent struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool
}

// Position holds the observer's position and orientation.
type Position struct {
	X, Y, Z    float32
	Yaw, Pitch float32
}

// Observer is a free-flying camera holder.
type Observer struct {
	world  Blocks
	camera *render.Camera

	position     mgl32.Vec3
	velocity     mgl32.Vec3
	acceleration mgl32.Vec3

	yaw, pitch   float32
	mousePrimed  bool
	lastX, lastY float64
}

// NewObserver creates an observer at pos looking down -Z.
func NewObserver(blocks Blocks, camera *render.Camera, pos mgl32.Vec3) *Observer {
	o := &Observer{world: blocks, camera: camera, position: pos}
	o.updateGaze()
	return o
}

// Camera returns the camera the observer steers.
func (o *Observer) Camera() *render.Camera { return o.camera }

// Eye returns the observer's position.
func (o *Observer) Eye() mgl32.Vec3 { return o.position }

// Velocity returns the current velocity.
func (o *Observer) Velocity() mgl32.Vec3 { return o.velocity }

// BlockPos returns the block containing the observer.
func (o *Observer) BlockPos() world.BlockPos {
	return floorPos(o.position)
}

// GetPosition returns a copy of the observer's position and orientation.
func (o *Observer) GetPosition() Position {
	return Position{
		X: o.position.X(), Y: o.position.Y(), Z: o.position.Z(),
		Yaw: o.yaw, Pitch: o.pitch,
	}
}

// SetPosition moves the observer and orients its gaze. Motion is cleared.
func (o *Observer) SetPosition(p Position) {
	o.position = mgl32.Vec3{p.X, p.Y, p.Z}
	o.velocity = mgl32.Vec3{}
	o.acceleration = mgl32.Vec3{}
	o.yaw = p.Yaw
	o.pitch = clampPitch(p.Pitch)
	o.updateGaze()
}

// Apply sets the acceleration for the next Step from in, relative to the
// horizontal gaze direction.
func (o *Observer) Apply(in Intent) {
	gaze := o.camera.Gaze
	forward := mgl32.Vec3{gaze.X(), 0, gaze.Z()}
	if forward.Len() > 0 {
		forward = forward.Normalize()
	}
	up := mgl32.Vec3{0, 1, 0}
	side := up.Cross(forward)

	var a mgl32.Vec3
	if in.Forward {
		a = a.Add(forward)
	}
	if in.Back {
		a = a.Sub(forward)
	}
	if in.Left {
		a = a.Add(side)
	}
	if in.Right {
		a = a.Sub(side)
	}
	if in.Up {
		a = a.Add(up)
	}
	if in.Down {
		a = a.Sub(up)
	}
	if a.Len() != 0 {
		a = a.Normalize().Mul(Acceleration)
	}
	o.acceleration = a
}

// Step integrates one tick of motion. Without acceleration the observer
// stops at once.
func (o *Observer) Step() {
	o.velocity = o.velocity.Add(o.acceleration)
	if o.velocity.Len() > MaxSpeed {
		o.velocity = o.velocity.Normalize().Mul(MaxSpeed)
	}
	if o.acceleration.Len() == 0 {
		o.velocity = mgl32.Vec3{}
	}
	o.acceleration = mgl32.Vec3{}
	o.position = o.position.Add(o.velocity)
}

// Look turns the observer by the mouse motion since the previous sample.
// The first sample only records the cursor.
func (o *Observer) Look(x, y float64) {
	if !o.mousePrimed {
		o.lastX, o.lastY = x, y
		o.mousePrimed = true
	}
	dx := x - o.lastX
	dy := o.lastY - y
	o.lastX, o.lastY = x, y

	o.yaw += float32(dx)
	o.pitch = clampPitch(o.pitch + float32(dy))
	o.updateGaze()
}

func clampPitch(p float32) float32 {
	return mgl32.Clamp(p, -MaxPitch, MaxPitch)
}

func (o *Observer) updateGaze() {
	yaw := float64(mgl32.DegToRad(180 - o.yaw))
	pitch := float64(mgl32.DegToRad(o.pitch))
	o.camera.Gaze = mgl32.Vec3{
		float32(math.Sin(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Cos(yaw) * math.Cos(pitch)),
	}
}

// RayMarch walks from start along gaze in unit steps for the length of gaze
// and returns the first non-air block.
func (o *Observer) RayMarch(start, gaze mgl32.Vec3) (world.BlockPos, bool) {
	dist := gaze.Len()
	if dist == 0 {
		return world.BlockPos{}, false
	}
	step := gaze.Normalize()
	for k := float32(0); k < dist; k += min(1, dist-k) {
		p := floorPos(start.Add(step.Mul(k)))
		if o.world.GetBlock(p) != block.Air {
			return p, true
		}
	}
	return world.BlockPos{}, false
}

// DestroyBlock replaces the first block within Reach along the gaze with
// air and returns its position.
func (o *Observer) DestroyBlock() (world.BlockPos, bool) {
	target, ok := o.RayMarch(o.position, o.camera.Gaze.Normalize().Mul(Reach))
	if !ok {
		return world.BlockPos{}, false
	}
	o.world.SetBlock(target, block.Air)
	return target, true
}

func floorPos(v mgl32.Vec3) world.BlockPos {
	return world.BlockPos{
		X: int(math.Floor(float64(v.X()))),
		Y: int(math.Floor(float64(v.Y()))),
		Z: int(math.Floor(float64(v.Z()))),
	}
}
