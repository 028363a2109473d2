package frame

import (
	"fmt"
	"math"
	"sort"

	"dqengine/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sum adds the non-missing cells; an empty column sums to 0
func (f *Frame) Sum(column string) (float64, error) {
	data, err := f.Floats(column)
	if err != nil {
		return 0, err
	}
	return floats.Sum(data), nil
}

// Mean of the non-missing cells
func (f *Frame) Mean(column string) (float64, error) {
	data, err := f.nonEmptyFloats(column)
	if err != nil {
		return 0, err
	}
	return stat.Mean(data, nil), nil
}

// StdDev is the sample standard deviation. A single observation has no spread
// and reports 0.
func (f *Frame) StdDev(column string) (float64, error) {
	data, err := f.nonEmptyFloats(column)
	if err != nil {
		return 0, err
	}
	if len(data) < 2 {
		return 0, nil
	}
	return stat.StdDev(data, nil), nil
}

// Median of the non-missing cells
func (f *Frame) Median(column string) (float64, error) {
	data, err := f.nonEmptyFloats(column)
	if err != nil {
		return 0, err
	}
	return stats.Median(data)
}

// MAD is the median of absolute deviations from the median
func (f *Frame) MAD(column string) (float64, error) {
	data, err := f.nonEmptyFloats(column)
	if err != nil {
		return 0, err
	}
	return stats.MedianAbsoluteDeviationPopulation(data)
}

// Quantile at fraction q, interpolating linearly between the order statistics
// around position (n-1)*q of the sorted values
func (f *Frame) Quantile(column string, q float64) (float64, error) {
	if q < 0 || q > 1 {
		return 0, fmt.Errorf("quantile fraction %v outside [0, 1]", q)
	}
	data, err := f.nonEmptyFloats(column)
	if err != nil {
		return 0, err
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1], nil
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i]), nil
}

func (f *Frame) nonEmptyFloats(column string) ([]float64, error) {
	data, err := f.Floats(column)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, core.NewColumnTypeError(core.ErrEmptyColumn, column)
	}
	return data, nil
}
