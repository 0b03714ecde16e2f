package expconf

import (
	"github.com/overheadlab/benchpack/internal/testid"
)

// PlannedRun is a replica run together with its completion status.
type PlannedRun struct {
	Replica
	Done bool
}

// Plan expands the config's test sets into every concrete replica run:
// global options overlay each set, matrix dimensions are expanded as a
// cross product, and replica ordinals are rendered with a uniform
// zero-pad width. Runs whose ordinal appears in completed, or falls
// below the set's Completed counter, are marked Done.
func (c *Config) Plan(completed CompletedSet) []PlannedRun {
	sets := flattenGlobals(c.Tests, c.Options)
	sets = flattenMatrix(sets)
	return flattenReplicas(sets, completed)
}

// Flatten is Plan filtered down to the runs still pending.
func (c *Config) Flatten(completed CompletedSet) []Replica {
	var out []Replica
	for _, run := range c.Plan(completed) {
		if !run.Done {
			out = append(out, run.Replica)
		}
	}
	return out
}

// FlattenSets expands matrix dimensions only, returning the concrete
// test sets without replica expansion. Used where the caller needs set
// IDs rather than run IDs (archive building).
func (c *Config) FlattenSets() []TestSet {
	return flattenMatrix(flattenGlobals(c.Tests, c.Options))
}

// flattenGlobals overlays the global options onto each test set.
// Globals win over per-set options, matching the automation's
// precedence; matrix choices applied later win over both.
func flattenGlobals(sets []TestSet, global map[string]any) []TestSet {
	out := make([]TestSet, 0, len(sets))
	for _, set := range sets {
		set.Options = overlayOptions(set.Options, global)
		out = append(out, set)
	}
	return out
}

// flattenMatrix expands each set's matrix dimensions as a cross
// product. IDs compose as <set-id>-<choice-id> per dimension, and the
// chosen value IDs are recorded per dimension name.
func flattenMatrix(sets []TestSet) []TestSet {
	var out []TestSet
	for _, set := range sets {
		if len(set.Matrix) == 0 {
			out = append(out, set)
			continue
		}
		working := []TestSet{set}
		for _, dim := range set.Matrix {
			if len(dim.Values) == 0 {
				continue
			}
			var next []TestSet
			for _, choice := range dim.Values {
				if choice.ID == "" {
					continue
				}
				for _, partial := range working {
					next = append(next, applyChoice(partial, dim.Name, choice))
				}
			}
			working = next
		}
		for i := range working {
			working[i].Matrix = nil
		}
		out = append(out, working...)
	}
	return out
}

func applyChoice(set TestSet, dimension string, choice Choice) TestSet {
	expanded := set
	expanded.ID = set.ID + "-" + choice.ID
	if choice.Experiment != "" {
		expanded.Experiment = choice.Experiment
	}
	if choice.Profile != "" {
		expanded.Profile = choice.Profile
	}
	if choice.Replicas > 0 {
		expanded.Replicas = choice.Replicas
	}
	if choice.Completed > 0 {
		expanded.Completed = choice.Completed
	}
	expanded.Options = overlayOptions(set.Options, choice.Options)
	ids := make(map[string]string, len(set.matrixIDs)+1)
	for k, v := range set.matrixIDs {
		ids[k] = v
	}
	ids[dimension] = choice.ID
	expanded.matrixIDs = ids
	return expanded
}

// flattenReplicas expands sets into replica runs. The zero-pad width
// is uniform across the whole config, derived from the largest replica
// count, so result names sort and glob consistently.
func flattenReplicas(sets []TestSet, completed CompletedSet) []PlannedRun {
	maxReplicas := 0
	for _, set := range sets {
		if set.Replicas > maxReplicas {
			maxReplicas = set.Replicas
		}
	}
	width := testid.ReplicaWidth(maxReplicas)

	var out []PlannedRun
	for _, set := range sets {
		replicas := set.Replicas
		if replicas <= 0 {
			replicas = 1
		}
		for ordinal := 0; ordinal < replicas; ordinal++ {
			out = append(out, PlannedRun{
				Replica: Replica{
					ID:         testid.FormatReplica(set.ID, ordinal, width),
					SetID:      set.ID,
					Ordinal:    ordinal,
					Experiment: set.Experiment,
					Profile:    set.Profile,
					Options:    set.Options,
					MatrixIDs:  set.matrixIDs,
				},
				Done: ordinal < set.Completed || completed.Has(set.ID, ordinal),
			})
		}
	}
	return out
}
