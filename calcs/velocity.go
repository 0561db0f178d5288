package calcs

// VelocityTracker smooths motor velocity samples with an exponentially
// weighted moving average. Alpha is the weight of the newest sample; an
// alpha of 1 passes samples through untouched.
type VelocityTracker struct {
	Alpha float64

	value  float64
	primed bool
}

func NewVelocityTracker(alpha float64) *VelocityTracker {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &VelocityTracker{Alpha: alpha}
}

func (t *VelocityTracker) Sample(v float64) float64 {
	if !t.primed {
		t.value = v
		t.primed = true
		return t.value
	}

	t.value = t.Alpha*v + (1-t.Alpha)*t.value
	return t.value
}

func (t *VelocityTracker) Value() float64 {
	return t.value
}

// Reset drops the history so the next sample primes the tracker. Used
// after a recovery move so stale pre-jam readings cannot linger.
func (t *VelocityTracker) Reset() {
	t.value = 0
	t.primed = false
}
