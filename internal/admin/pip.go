package admin

import (
	"sort"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/observability"
)

// Service assembles an AdminHierarchy for a coordinate by point-in-
// polygon lookup against a SpatialIndex, with enclave disambiguation
// and country-code enforcement (spec §4.4).
type Service struct {
	index   *SpatialIndex
	metrics *observability.Metrics
}

// NewService wraps a built SpatialIndex for PIP hierarchy assembly.
func NewService(index *SpatialIndex) *Service {
	return &Service{index: index}
}

// WithMetrics attaches metrics to be observed on each Lookup. Returns
// the same Service for chaining at construction time.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// Index returns the underlying spatial index, for stats/debugging.
func (s *Service) Index() *SpatialIndex { return s.index }

// Lookup assembles the admin hierarchy containing (lon, lat). When
// limitLevel is non-nil, candidates at or below that level are dropped
// first — used when PIP-enriching an admin boundary itself, to avoid
// self-parenting (spec §4.4 step 2).
func (s *Service) Lookup(lon, lat float64, limitLevel *domain.AdminLevel) domain.AdminHierarchy {
	var hierarchy domain.AdminHierarchy

	candidates := s.index.Lookup(lon, lat)
	if s.metrics != nil {
		s.metrics.PIPCandidatesFound.Observe(float64(len(candidates)))
	}
	if limitLevel != nil {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.boundary.Area.Level < *limitLevel {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	forcedCountryCode, hasForced := forcedCountryCode(candidates)

	for level := domain.AdminLevelCountry; level <= domain.AdminLevelNeighbourhood; level++ {
		atLevel := candidatesAtLevel(candidates, level)

		if level == domain.AdminLevelCountry && hasForced {
			atLevel = filterByCountryCode(atLevel, forcedCountryCode)
		}

		if len(atLevel) == 0 {
			continue
		}

		sort.SliceStable(atLevel, func(i, j int) bool { return atLevel[i].area < atLevel[j].area })
		smallest := atLevel[0].boundary
		entry := entryFromArea(smallest.Area)
		hierarchy.Set(level, entry)
	}

	return hierarchy
}

// forcedCountryCode finds the most specific (highest level) candidate
// carrying a non-empty IsoCountryCode, used to disambiguate overlapping
// or disputed countries (spec §4.4 step 3, Glossary "Forced country
// code").
func forcedCountryCode(candidates []candidate) (string, bool) {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].boundary.Area.Level > sorted[j].boundary.Area.Level })
	for _, c := range sorted {
		if c.boundary.Area.IsoCountryCode != "" {
			return c.boundary.Area.IsoCountryCode, true
		}
	}
	return "", false
}

func candidatesAtLevel(candidates []candidate, level domain.AdminLevel) []candidate {
	var out []candidate
	for _, c := range candidates {
		if c.boundary.Area.Level == level {
			out = append(out, c)
		}
	}
	return out
}

func filterByCountryCode(candidates []candidate, code string) []candidate {
	var out []candidate
	for _, c := range candidates {
		if c.boundary.Area.IsoCountryCode == code || c.boundary.Area.Abbr == code {
			out = append(out, c)
		}
	}
	return out
}

func entryFromArea(a domain.AdminArea) domain.AdminEntry {
	return domain.AdminEntry{
		Name:  a.Name["default"],
		Abbr:  a.Abbr,
		ID:    a.SourceID(),
		Bbox:  a.Bbox,
		Names: a.Name,
	}
}
