package gpu

import "github.com/go-gl/mathgl/mgl32"

// Op identifies a recorded command.
type Op int

const (
	OpCopy Op = iota
	OpSetViewProjection
	OpDraw
)

func (o Op) String() string {
	switch o {
	case OpCopy:
		return "copy"
	case OpSetViewProjection:
		return "set-view-projection"
	case OpDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// Command is a single recorded operation. Only the fields relevant to Op
// are set.
type Command struct {
	Op Op

	// OpCopy.
	Src, Dst Buffer
	Size     int

	// OpSetViewProjection.
	View, Projection mgl32.Mat4

	// OpDraw. Vertices per instance and instance count read from Dst.
	Vertices  uint32
	Instances uint32
}

// CommandBuffer records commands for one submission. It is reused across
// frames after Reset.
type CommandBuffer struct {
	cmds []Command
}

// NewCommandBuffer returns an empty command buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Reset drops all recorded commands, keeping capacity.
func (c *CommandBuffer) Reset() {
	c.cmds = c.cmds[:0]
}

// CopyBuffer records a transfer of size bytes from the start of src to the
// start of dst.
func (c *CommandBuffer) CopyBuffer(src, dst Buffer, size int) {
	c.cmds = append(c.cmds, Command{Op: OpCopy, Src: src, Dst: dst, Size: size})
}

// SetViewProjection records the camera matrices used by subsequent draws.
func (c *CommandBuffer) SetViewProjection(view, projection mgl32.Mat4) {
	c.cmds = append(c.cmds, Command{Op: OpSetViewProjection, View: view, Projection: projection})
}

// Draw records an instanced draw reading per-instance data from vb.
func (c *CommandBuffer) Draw(vb Buffer, vertices, instances uint32) {
	c.cmds = append(c.cmds, Command{Op: OpDraw, Dst: vb, Vertices: vertices, Instances: instances})
}

// Commands returns the recorded commands in order.
func (c *CommandBuffer) Commands() []Command {
	return c.cmds
}

// Len returns the number of recorded commands.
func (c *CommandBuffer) Len() int { return len(c.cmds) }
