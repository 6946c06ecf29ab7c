package camera

import "github.com/go-gl/mathgl/mgl32"

// Direction is one of the movement inputs a Controller tracks
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
	Up
	Down
	numDirections
)

// Controller moves a camera from held movement keys
type Controller struct {
	// Speed in world units per second
	Speed float32

	held [numDirections]bool
}

// NewController creates a controller moving at speed units per second
func NewController(speed float32) *Controller {
	return &Controller{Speed: speed}
}

// SetHeld records whether a direction's key is down
func (c *Controller) SetHeld(d Direction, down bool) {
	if d < 0 || d >= numDirections {
		return
	}
	c.held[d] = down
}

// Update moves eye and target together by Speed*dt along the view basis.
// Returns true if the camera moved.
func (c *Controller) Update(cam *Camera, dt float32) bool {
	var move mgl32.Vec3
	forward := cam.Forward()
	right := forward.Cross(cam.Up)
	if right.Len() > 0 {
		right = right.Normalize()
	}
	up := cam.Up
	if up.Len() > 0 {
		up = up.Normalize()
	}

	if c.held[Forward] {
		move = move.Add(forward)
	}
	if c.held[Backward] {
		move = move.Sub(forward)
	}
	if c.held[Right] {
		move = move.Add(right)
	}
	if c.held[Left] {
		move = move.Sub(right)
	}
	if c.held[Up] {
		move = move.Add(up)
	}
	if c.held[Down] {
		move = move.Sub(up)
	}
	if move.Len() == 0 {
		return false
	}

	step := move.Normalize().Mul(c.Speed * dt)
	cam.Eye = cam.Eye.Add(step)
	cam.Target = cam.Target.Add(step)
	return true
}

// Orbit rotates the eye around the target about the up axis by angle radians
func Orbit(cam *Camera, angle float32) {
	offset := cam.Eye.Sub(cam.Target)
	rot := mgl32.HomogRotate3D(angle, cam.Up.Normalize())
	cam.Eye = cam.Target.Add(rot.Mul4x1(offset.Vec4(0)).Vec3())
}
