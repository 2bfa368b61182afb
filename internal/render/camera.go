package render

import "github.com/go-gl/mathgl/mgl32"

// ViewProjector supplies the camera matrices for a frame.
type ViewProjector interface {
	View(eye mgl32.Vec3) mgl32.Mat4
	Projection() mgl32.Mat4
}

// Camera is a perspective camera looking along Gaze with +Y up.
type Camera struct {
	FovY   float32 // degrees
	Aspect float32
	Near   float32
	Far    float32
	Gaze   mgl32.Vec3
}

// NewCamera returns a camera with a 70 degree field of view looking down -Z.
func NewCamera(aspect float32) *Camera {
	return &Camera{
		FovY:   70,
		Aspect: aspect,
		Near:   0.1,
		Far:    128,
		Gaze:   mgl32.Vec3{0, 0, -1},
	}
}

func (c *Camera) View(eye mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, eye.Add(c.Gaze), mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective matrix with clip-space Y pointing down.
func (c *Camera) Projection() mgl32.Mat4 {
	p := mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
	p[5] = -p[5]
	return p
}
