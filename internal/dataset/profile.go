package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnProfile summarizes one column of the full frame.
type ColumnProfile struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Present int      `json:"present"`
	Missing int      `json:"missing"`
	Mean    *float64 `json:"mean,omitempty"`
	StdDev  *float64 `json:"std_dev,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// Profile reports per-column counts, plus descriptive statistics for numeric
// columns computed over present values.
func (d *Dataset) Profile() []ColumnProfile {
	names := d.frame.Names()
	out := make([]ColumnProfile, 0, len(names))
	for _, name := range names {
		s := d.frame.Col(name)
		p := ColumnProfile{Name: name, Type: string(s.Type())}

		values := s.Float()
		present := make([]float64, 0, s.Len())
		for i := 0; i < s.Len(); i++ {
			if s.Elem(i).IsNA() {
				p.Missing++
				continue
			}
			p.Present++
			if isNumeric(s.Type()) {
				present = append(present, values[i])
			}
		}

		if len(present) > 0 {
			mean, std := stat.MeanStdDev(present, nil)
			lo, hi := floats.Min(present), floats.Max(present)
			p.Mean, p.Min, p.Max = &mean, &lo, &hi
			if len(present) > 1 {
				p.StdDev = &std
			}
		}
		out = append(out, p)
	}
	return out
}
