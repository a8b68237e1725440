/*
Copyright © 2013 the parcel authors.
This file is part of parcel.

parcel is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

parcel is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with parcel.  If not, see <http://www.gnu.org/licenses/>.
*/

package parcel

import (
	"fmt"
	"math"

	"github.com/spatialmodel/parcel/science/constants"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Lognormal is a lognormal particle size distribution.
type Lognormal struct {
	// Mu is the geometric mean (median) radius [m].
	Mu float64

	// Sigma is the geometric standard deviation.
	Sigma float64

	// N is the total number concentration [m⁻³].
	N float64
}

func (l Lognormal) validate(name string) error {
	switch {
	case !(l.Mu > 0):
		return &ConfigurationError{Param: name + ".Mu", Value: l.Mu, Reason: "mean radius must be positive"}
	case !(l.Sigma > 1):
		return &ConfigurationError{Param: name + ".Sigma", Value: l.Sigma, Reason: "geometric standard deviation must be greater than 1"}
	case !(l.N > 0):
		return &ConfigurationError{Param: name + ".N", Value: l.N, Reason: "number concentration must be positive"}
	}
	return nil
}

func (l Lognormal) dist() distuv.LogNormal {
	return distuv.LogNormal{Mu: math.Log(l.Mu), Sigma: math.Log(l.Sigma)}
}

// PDF returns the number size distribution dN/dr [m⁻⁴] at radius r.
func (l Lognormal) PDF(r float64) float64 { return l.N * l.dist().Prob(r) }

// CDF returns the fraction of particles with radius less than r.
func (l Lognormal) CDF(r float64) float64 { return l.dist().CDF(r) }

// Moment returns the kth moment of the distribution, ∫ r^k dN.
func (l Lognormal) Moment(k float64) float64 {
	lnσ := math.Log(l.Sigma)
	return l.N * math.Pow(l.Mu, k) * math.Exp(k*k*lnσ*lnσ/2)
}

// AerosolBin is a single aerosol size bin.
type AerosolBin struct {
	// R is the dry radius [m].
	R float64

	// Lo and Hi are the edges of the bin [m].
	Lo, Hi float64

	// N is the number concentration [m⁻³].
	N float64

	// Kappa is the hygroscopicity parameter.
	Kappa float64

	// Mass is the dry mass of a single particle [kg].
	Mass float64

	// Species is the index of the bin's species in its Population.
	Species int
}

// Species is a single aerosol species discretized into size bins. It
// cannot be modified after it is created.
type Species struct {
	name    string
	kappa   float64
	density float64 // [kg/m³]

	// mode is the distribution the species was binned from, or nil if
	// the species was created from pre-binned data.
	mode *Lognormal

	bins []AerosolBin
}

// Name returns the name of the species.
func (s *Species) Name() string { return s.name }

// Kappa returns the hygroscopicity parameter of the species.
func (s *Species) Kappa() float64 { return s.kappa }

// Density returns the dry density of the species [kg/m³].
func (s *Species) Density() float64 { return s.density }

// Mode returns the distribution the species was binned from. ok is false
// if the species was created from pre-binned data.
func (s *Species) Mode() (mode Lognormal, ok bool) {
	if s.mode == nil {
		return Lognormal{}, false
	}
	return *s.mode, true
}

// NewSpecies discretizes a lognormal distribution into nbins bins with
// logarithmically-spaced edges spanning [Mu/(10σ), 10σMu]. The number in
// each bin is the integral of the distribution over the bin, and the bin
// radius is the geometric mean of its edges. If density is zero, the
// default aerosol density is used.
func NewSpecies(name string, mode Lognormal, kappa, density float64, nbins int) (*Species, error) {
	if err := mode.validate(name); err != nil {
		return nil, err
	}
	s, err := newSpecies(name, kappa, density, nbins)
	if err != nil {
		return nil, err
	}
	s.mode = &mode
	lo := math.Log(mode.Mu / (10 * mode.Sigma))
	hi := math.Log(mode.Mu * 10 * mode.Sigma)
	edges := make([]float64, nbins+1)
	floats.Span(edges, lo, hi)
	for i := range edges {
		edges[i] = math.Exp(edges[i])
	}
	dist := mode.dist()
	s.bins = make([]AerosolBin, nbins)
	for i := range s.bins {
		r := math.Sqrt(edges[i] * edges[i+1])
		s.bins[i] = AerosolBin{
			R:     r,
			Lo:    edges[i],
			Hi:    edges[i+1],
			N:     mode.N * (dist.CDF(edges[i+1]) - dist.CDF(edges[i])),
			Kappa: kappa,
			Mass:  4. / 3. * math.Pi * r * r * r * s.density,
		}
	}
	return s, nil
}

// NewSpeciesFromBins creates a species from pre-binned data, where radii
// are the dry radii [m] in increasing order and numbers are the number
// concentrations [m⁻³] of each bin. Bin edges are placed at the geometric
// midpoints between radii.
func NewSpeciesFromBins(name string, radii, numbers []float64, kappa, density float64) (*Species, error) {
	if len(radii) != len(numbers) {
		return nil, &ConfigurationError{Param: name + ".numbers", Value: len(numbers),
			Reason: fmt.Sprintf("there are %d radii but %d number concentrations", len(radii), len(numbers))}
	}
	s, err := newSpecies(name, kappa, density, len(radii))
	if err != nil {
		return nil, err
	}
	for i, r := range radii {
		if !(r > 0) || (i > 0 && !(r > radii[i-1])) {
			return nil, &ConfigurationError{Param: fmt.Sprintf("%s.radii[%d]", name, i), Value: r,
				Reason: "radii must be positive and increasing"}
		}
		if !(numbers[i] >= 0) {
			return nil, &ConfigurationError{Param: fmt.Sprintf("%s.numbers[%d]", name, i), Value: numbers[i],
				Reason: "number concentrations must not be negative"}
		}
	}
	s.bins = make([]AerosolBin, len(radii))
	for i, r := range radii {
		var lo, hi float64
		if i > 0 {
			lo = math.Sqrt(radii[i-1] * r)
		} else {
			lo = r * r / math.Sqrt(r*radii[1])
		}
		if i < len(radii)-1 {
			hi = math.Sqrt(r * radii[i+1])
		} else {
			hi = r * r / math.Sqrt(radii[i-1]*r)
		}
		s.bins[i] = AerosolBin{
			R:     r,
			Lo:    lo,
			Hi:    hi,
			N:     numbers[i],
			Kappa: kappa,
			Mass:  4. / 3. * math.Pi * r * r * r * s.density,
		}
	}
	return s, nil
}

func newSpecies(name string, kappa, density float64, nbins int) (*Species, error) {
	if nbins < 2 {
		return nil, &ConfigurationError{Param: name + ".bins", Value: nbins, Reason: "there must be at least 2 bins"}
	}
	if !(kappa > 0) {
		return nil, &ConfigurationError{Param: name + ".Kappa", Value: kappa, Reason: "hygroscopicity must be positive"}
	}
	if density == 0 {
		density = constants.DefaultAerosolDensity
	}
	if !(density > 0) {
		return nil, &ConfigurationError{Param: name + ".Density", Value: density, Reason: "density must be positive"}
	}
	return &Species{name: name, kappa: kappa, density: density}, nil
}

// Bins returns a copy of the bins of this species.
func (s *Species) Bins() []AerosolBin {
	return append([]AerosolBin(nil), s.bins...)
}

// Number returns the total number concentration of this species [m⁻³].
func (s *Species) Number() float64 {
	var n float64
	for _, b := range s.bins {
		n += b.N
	}
	return n
}

// Population is an ordered set of aerosol bins from one or more species.
// It cannot be modified after it is created.
type Population struct {
	bins    []AerosolBin
	species []*Species
	start   []int // index of the first bin of each species
}

// NewPopulation concatenates the bins of the given species into a single
// population.
func NewPopulation(species ...*Species) (*Population, error) {
	if len(species) == 0 {
		return nil, &ConfigurationError{Param: "species", Value: 0, Reason: "at least one aerosol species is required"}
	}
	p := &Population{species: species}
	names := make(map[string]bool)
	for j, s := range species {
		if names[s.name] {
			return nil, &ConfigurationError{Param: "species", Value: s.name, Reason: "duplicate species name"}
		}
		names[s.name] = true
		p.start = append(p.start, len(p.bins))
		for _, b := range s.bins {
			b.Species = j
			p.bins = append(p.bins, b)
		}
	}
	return p, nil
}

// Len returns the number of bins in the population.
func (p *Population) Len() int { return len(p.bins) }

// Bin returns bin i.
func (p *Population) Bin(i int) AerosolBin { return p.bins[i] }

// Bins returns a copy of all bins.
func (p *Population) Bins() []AerosolBin {
	return append([]AerosolBin(nil), p.bins...)
}

// Species returns the species in the population.
func (p *Population) Species() []*Species {
	return append([]*Species(nil), p.species...)
}

// SpeciesRange returns the index range [start, end) of the bins of
// species j.
func (p *Population) SpeciesRange(j int) (start, end int) {
	start = p.start[j]
	if j == len(p.start)-1 {
		return start, len(p.bins)
	}
	return start, p.start[j+1]
}

// TotalNumber returns the total number concentration [m⁻³].
func (p *Population) TotalNumber() float64 {
	var n float64
	for _, b := range p.bins {
		n += b.N
	}
	return n
}

// TotalDryMass returns the total dry aerosol mass concentration [kg/m³].
func (p *Population) TotalDryMass() float64 {
	var m float64
	for _, b := range p.bins {
		m += b.N * b.Mass
	}
	return m
}

// Without returns a population that does not include species with a total
// number concentration less than minN [m⁻³]. An error is returned if no
// species remain.
func (p *Population) Without(minN float64) (*Population, error) {
	var keep []*Species
	for _, s := range p.species {
		if s.Number() >= minN {
			keep = append(keep, s)
		}
	}
	if len(keep) == len(p.species) {
		return p, nil
	}
	return NewPopulation(keep...)
}
