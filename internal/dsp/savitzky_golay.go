package dsp

import "fmt"

// Order is the window length of a SavitzkyGolay filter.
type Order int

const (
	Order3 Order = 3
	Order4 Order = 4
	Order6 Order = 6
	Order7 Order = 7
	Order9 Order = 9
)

// Coefficients are ordered most recent sample first. The Order9 table has a
// DC gain of about 1.044 rather than 1.
var sgCoefficients = map[Order][]float32{
	Order3: {0.83333, 0.33333, -0.16667},
	Order4: {0.7, 0.4, 0.1, -0.2},
	Order6: {0.52381, 0.38095, 0.2381, 0.09524, -0.04762, -0.19048},
	Order7: {0.46429, 0.35714, 0.25, 0.14286, 0.03571, -0.07143, -0.17857},
	Order9: {0.37778, 0.31111, 0.24444, 0.17778, 0.11111, 0.04444, -0.02222, -0.08889, -0.11156},
}

// Valid reports whether a coefficient table exists for o.
func (o Order) Valid() bool {
	_, ok := sgCoefficients[o]
	return ok
}

// SavitzkyGolay is a trend-following least-squares smoother over the last
// Order samples.
type SavitzkyGolay struct {
	order   Order
	history []float32
}

// NewSavitzkyGolay panics if order has no coefficient table.
func NewSavitzkyGolay(order Order) *SavitzkyGolay {
	if !order.Valid() {
		panic(fmt.Sprintf("dsp: unsupported savitzky-golay order %d", order))
	}
	return &SavitzkyGolay{order: order, history: make([]float32, order)}
}

func (f *SavitzkyGolay) Filter(next float32) float32 {
	copy(f.history[1:], f.history[:len(f.history)-1])
	f.history[0] = next

	var out float32
	for i, c := range sgCoefficients[f.order] {
		out += c * f.history[i]
	}
	return out
}

// Reset fills the whole history with v.
func (f *SavitzkyGolay) Reset(v float32) {
	for i := range f.history {
		f.history[i] = v
	}
}

func (f *SavitzkyGolay) Order() Order { return f.order }

// SetOrder resizes the history, keeping the most recent samples and padding
// with the oldest retained one.
func (f *SavitzkyGolay) SetOrder(order Order) {
	if !order.Valid() {
		panic(fmt.Sprintf("dsp: unsupported savitzky-golay order %d", order))
	}
	n := int(order)
	if n <= len(f.history) {
		f.history = f.history[:n]
	} else {
		oldest := f.history[len(f.history)-1]
		for len(f.history) < n {
			f.history = append(f.history, oldest)
		}
	}
	f.order = order
}
