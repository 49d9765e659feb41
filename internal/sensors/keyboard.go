package sensors

import "github.com/signalsfoundry/orrery/model"

// DefaultKeyStep is the orientation change per key press, in degrees.
const DefaultKeyStep = 15.0

// KeyboardOrientation turns discrete key presses into orientation readings
// pushed to a FeedSensor. It is not safe for concurrent use; front-ends call
// it from their input loop.
type KeyboardOrientation struct {
	Feed *FeedSensor
	Step float64

	alpha, beta, gamma float64
}

// NewKeyboardOrientation feeds readings into feed using the default step.
func NewKeyboardOrientation(feed *FeedSensor) *KeyboardOrientation {
	return &KeyboardOrientation{Feed: feed, Step: DefaultKeyStep}
}

// Turn adds the given number of steps to each angle and pushes the result.
func (k *KeyboardOrientation) Turn(alpha, beta, gamma int) {
	step := k.Step
	if step == 0 {
		step = DefaultKeyStep
	}
	k.alpha += float64(alpha) * step
	k.beta += float64(beta) * step
	k.gamma += float64(gamma) * step
	k.push()
}

// Reset returns every angle to zero and pushes the result.
func (k *KeyboardOrientation) Reset() {
	k.alpha, k.beta, k.gamma = 0, 0, 0
	k.push()
}

// Current returns the accumulated orientation.
func (k *KeyboardOrientation) Current() model.Orientation {
	return model.Orientation{
		Alpha: model.Degrees(k.alpha),
		Beta:  model.Degrees(k.beta),
		Gamma: model.Degrees(k.gamma),
	}
}

func (k *KeyboardOrientation) push() {
	if k.Feed != nil {
		k.Feed.Push(k.Current())
	}
}
