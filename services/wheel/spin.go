package wheel

import "math/rand/v2"

// Spin physics, per animation frame.
const (
	BaseVelocity   = 0.45
	VelocityJitter = 0.2
	Decay          = 0.985
	StopThreshold  = 0.002
)

// Spin is a fully simulated spin. The browser replays it frame by frame and
// lands on FinalAngle.
type Spin struct {
	Velocity    float64 `json:"velocity"`
	Decay       float64 `json:"decay"`
	Threshold   float64 `json:"threshold"`
	Frames      int     `json:"frames"`
	FinalAngle  float64 `json:"finalAngle"`
	WinnerIndex int     `json:"winnerIndex"`
}

// NewSpin draws an initial velocity and simulates the spin for n slices.
func NewSpin(rnd *rand.Rand, n int) (Spin, error) {
	if n < 1 {
		return Spin{}, ErrNoSlices
	}
	var jitter float64
	if rnd != nil {
		jitter = rnd.Float64()
	} else {
		jitter = rand.Float64()
	}
	return Simulate(BaseVelocity+jitter*VelocityJitter, n), nil
}

// Simulate runs the friction model from an initial velocity. Each frame
// decays the velocity then advances the angle; the spin stops on the first
// frame whose velocity falls below StopThreshold.
func Simulate(velocity float64, n int) Spin {
	s := Spin{Velocity: velocity, Decay: Decay, Threshold: StopThreshold}
	v, angle := velocity, 0.0
	for {
		v *= Decay
		angle += v
		s.Frames++
		if v < StopThreshold {
			break
		}
	}
	s.FinalAngle = angle
	s.WinnerIndex = WinnerIndex(angle, n)
	return s
}
