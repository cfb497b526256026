package sim

import "github.com/sirupsen/logrus"

const (
	StateNormal      InterlockState = "normal"
	StateEstopActive InterlockState = "estop-active"
)

type InterlockState string

// Interlock tracks the emergency stop override. While active, cooling
// actuation contributes nothing and the PI integrator is held at zero
// every tick, so control resumes from a clean integrator instead of
// releasing accumulated windup.
type Interlock struct {
	state InterlockState
}

func NewInterlock() *Interlock {
	return &Interlock{state: StateNormal}
}

// Update follows the commanded flag directly. No hysteresis or debounce;
// the simulated process is not safety critical and the upstream device
// behaved the same way.
func (i *Interlock) Update(estop bool) InterlockState {
	next := StateNormal
	if estop {
		next = StateEstopActive
	}
	if next != i.state {
		logrus.WithFields(logrus.Fields{"from": i.state, "to": next}).Info("sim: interlock transition")
		i.state = next
	}
	return i.state
}

func (i *Interlock) Engaged() bool {
	return i.state == StateEstopActive
}
