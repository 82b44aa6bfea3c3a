package coverage

import (
	"github.com/montanaflynn/stats"
)

// Summary is the overall view of an aggregate, used in logs and in the
// parse command.
type Summary struct {
	Packages int
	Classes  int
	Overall  Totals

	// Distribution of the class coverage percentages.
	MinClass    float64
	MaxClass    float64
	MeanClass   float64
	MedianClass float64
}

// Summarize computes the overall line coverage from the package totals and
// the distribution of the per-class percentages.
func (a *Aggregate) Summarize() Summary {
	s := Summary{
		Packages: len(a.Packages),
		Classes:  len(a.Classes),
	}
	for _, pkg := range a.Packages {
		s.Overall.Covered += pkg.Covered
		s.Overall.Total += pkg.Total
	}

	if len(a.Classes) == 0 {
		return s
	}
	data := make(stats.Float64Data, 0, len(a.Classes))
	for _, name := range a.Classes.Names() {
		data = append(data, a.Classes[name].Percent())
	}
	s.MinClass, _ = stats.Min(data)
	s.MaxClass, _ = stats.Max(data)
	s.MeanClass, _ = stats.Mean(data)
	s.MedianClass, _ = stats.Median(data)
	return s
}
