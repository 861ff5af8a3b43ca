package dsp

// SignalFilter smooths a stream of samples one value at a time.
type SignalFilter interface {
	Filter(next float32) float32
	Reset(v float32)
}

// Multipass runs a sample through several filters in order.
type Multipass struct {
	filters []SignalFilter
}

// NewMultipass chains filters; the first one sees the raw sample.
func NewMultipass(filters ...SignalFilter) *Multipass {
	return &Multipass{filters: filters}
}

func (m *Multipass) Filter(next float32) float32 {
	for _, f := range m.filters {
		next = f.Filter(next)
	}
	return next
}

func (m *Multipass) Reset(v float32) {
	for _, f := range m.filters {
		f.Reset(v)
	}
}
