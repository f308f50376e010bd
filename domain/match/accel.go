package match

import "sync"

// Correlator computes the raw correlation in [-1,1] of two equal-sized luma
// patches. It is an optional native fast path for the NCC metric.
type Correlator interface {
	Correlate(a, b []float64, w, h int) (float64, error)
	Name() string
}

// Capabilities reports which optional backends are usable in this process.
type Capabilities struct {
	Accelerated bool
	Backend     string
	Err         error // why acceleration is unavailable
	correlator  Correlator
}

// Correlator returns the native backend, or nil.
func (c Capabilities) Correlator() Correlator { return c.correlator }

var capability = sync.OnceValue(func() Capabilities {
	c, err := newCorrelator()
	if err != nil {
		return Capabilities{Backend: "go", Err: err}
	}
	return Capabilities{Accelerated: true, Backend: c.Name(), correlator: c}
})

// Capability probes the optional backends once per process.
func Capability() Capabilities { return capability() }
