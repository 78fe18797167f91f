package optimize

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	eaopt "github.com/MaxHalford/eaopt"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// SearchDomain bounds each tunable for the evolutionary search. Keys are
// parameter names; iteration order is fixed by sorting so a genome dimension
// always maps to the same parameter.
type SearchDomain map[string]models.SearchParameter

// badTrialPenalty is the objective value assigned to failed trials and
// undefined Sharpe ratios so the minimizer steers away from them.
const badTrialPenalty = 1e9

// Evolve searches the domain with differential evolution instead of an
// exhaustive grid, minimizing negative in-sample Sharpe. apply maps a
// constrained domain onto a parameter set; generations controls how long the
// population evolves. The RNG is seeded for reproducible searches.
func (o *Optimizer) Evolve(
	base models.ParameterSet,
	domain SearchDomain,
	apply func(models.ParameterSet, SearchDomain) models.ParameterSet,
	generations uint,
) (models.ParameterSet, float64, error) {
	if o.source == nil {
		return base, 0, fmt.Errorf("data not loaded; call LoadDataOnce first")
	}
	if len(domain) == 0 {
		return base, 0, fmt.Errorf("empty search domain")
	}
	keys := domainKeys(domain)

	objective := func(x []float64) float64 {
		params := apply(base, ConstrainSearchParameters(domain, keys, x))
		metrics, err := o.runTrial(params, o.cfg.Start, o.cfg.End)
		if err != nil || math.IsNaN(metrics.SharpeRatio) {
			return badTrialPenalty
		}
		return -metrics.SharpeRatio
	}

	// Genomes are normalized to [0,1]; ConstrainSearchParameters scales
	// each dimension onto its own domain.
	de, err := eaopt.NewDiffEvo(40, generations, 0, 1, 0.5, 0.2, false, rand.New(rand.NewSource(13)))
	if err != nil {
		return base, 0, err
	}
	x, y, err := de.Minimize(objective, uint(len(keys)))
	if err != nil {
		return base, 0, err
	}
	if y >= badTrialPenalty {
		return base, 0, fmt.Errorf("evolutionary search found no viable parameters")
	}
	best := apply(base, ConstrainSearchParameters(domain, keys, x))
	return best, -y, nil
}

// ConstrainSearchParameters maps a normalized genome onto the domain,
// clamping and rounding every coordinate to its parameter's bounds.
func ConstrainSearchParameters(domain SearchDomain, keys []string, x []float64) SearchDomain {
	out := make(SearchDomain, len(domain))
	for i, key := range keys {
		out[key] = domain[key].SetScaled(x[i])
	}
	return out
}

func domainKeys(domain SearchDomain) []string {
	keys := make([]string, 0, len(domain))
	for key := range domain {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
