package ranging

// SetPreemptHook installs f to run between the left and right distance loads
// of the fusion step, standing in for a tick that preempts the cadence.
func (r *Ranger) SetPreemptHook(f func()) {
	r.preempt = f
}
