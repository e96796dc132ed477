package build

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stratalab/strata/catalog"
)

// ErrNoDatabase is wrapped by optimizer failures: no database can serve the
// plan at any depth.
var ErrNoDatabase = errors.New("no database can serve the build plan")

// OptimizeOption adjusts optimizer behavior.
type OptimizeOption func(*optimizeConfig)

type optimizeConfig struct {
	preferVirtual bool
}

// PreferVirtual flips the cost tie-break: when several (depth, database)
// pairs share the minimum cost, prefer inlining more of the dependency graph
// as subqueries instead of pushing work down to the physical engine.
func PreferVirtual() OptimizeOption {
	return func(cfg *optimizeConfig) { cfg.preferVirtual = true }
}

// MaxDepth returns the deepest pushdown depth the plan can be built at: the
// longest chain of non-source dependencies under any reference in the plan.
func MaxDepth(bp *BuildPlan) int {
	return maxDepth(bp, make(map[*BuildPlan]int))
}

// maxDepth memoizes the computed depth per plan. A plan shared by several
// branches (a diamond in the dependency graph) must report the same depth on
// every path, so the memo holds finished results; the zero entry written
// before recursing only cuts true cycles.
func maxDepth(bp *BuildPlan, memo map[*BuildPlan]int) int {
	if d, ok := memo[bp]; ok {
		return d
	}
	memo[bp] = 0
	depth := 0
	for _, rev := range bp.tableRevs {
		entry := bp.Lookup[rev.Name]
		if entry == nil || entry.SubPlan == nil {
			continue
		}
		if d := 1 + maxDepth(entry.SubPlan, memo); d > depth {
			depth = d
		}
	}
	memo[bp] = depth
	return depth
}

// frontier collects the revisions that must be served physically when the
// plan is built at the given depth: sources everywhere, and every non-source
// reference once depth is exhausted. Depth 0 is full pushdown.
func frontier(bp *BuildPlan, depth int, out map[string]*PlanEntry) {
	for _, rev := range bp.tableRevs {
		entry := bp.Lookup[rev.Name]
		if entry == nil {
			continue
		}
		if rev.Type == catalog.Source || depth == 0 || entry.SubPlan == nil {
			out[rev.Name] = entry
			continue
		}
		frontier(entry.SubPlan, depth-1, out)
	}
}

// OptimizeByDatabaseID finds the shallowest depth at which every node needed
// at that depth is materialized on the requested database. It fails when the
// database can serve the plan at no depth.
func OptimizeByDatabaseID(bp *BuildPlan, databaseID int64) (int, *catalog.Database, error) {
	max := MaxDepth(bp)
	for depth := 0; depth <= max; depth++ {
		needed := make(map[string]*PlanEntry)
		frontier(bp, depth, needed)
		db := databaseAcrossEntries(needed, databaseID)
		if db != nil {
			return depth, db, nil
		}
	}
	return 0, nil, fmt.Errorf("database %d cannot serve the plan at any depth: %w", databaseID, ErrNoDatabase)
}

func databaseAcrossEntries(entries map[string]*PlanEntry, databaseID int64) *catalog.Database {
	var db *catalog.Database
	for _, entry := range entries {
		found, ok := entry.Databases[databaseID]
		if !ok {
			return nil
		}
		db = found
	}
	return db
}

// OptimizeByCost scans every candidate depth, intersects the databases able
// to serve all nodes needed at that depth, and picks the (depth, database)
// pair with minimum cost. Depths are scanned from full pushdown upward and a
// deeper level of inlining wins only on strictly lower cost, so ties favor
// pushdown; PreferVirtual flips that.
func OptimizeByCost(bp *BuildPlan, opts ...OptimizeOption) (int, *catalog.Database, error) {
	var cfg optimizeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	max := MaxDepth(bp)
	bestDepth := -1
	var best *catalog.Database
	for depth := 0; depth <= max; depth++ {
		needed := make(map[string]*PlanEntry)
		frontier(bp, depth, needed)
		db := cheapestCommonDatabase(needed)
		if db == nil {
			continue
		}
		better := best == nil || db.Cost < best.Cost
		if cfg.preferVirtual {
			better = best == nil || db.Cost <= best.Cost
		}
		if better {
			bestDepth, best = depth, db
		}
	}
	if best == nil {
		return 0, nil, fmt.Errorf("optimizing by cost: %w", ErrNoDatabase)
	}
	return bestDepth, best, nil
}

// cheapestCommonDatabase intersects the candidate databases of all entries
// and returns the cheapest, breaking cost ties by id for determinism.
func cheapestCommonDatabase(entries map[string]*PlanEntry) *catalog.Database {
	var common map[int64]*catalog.Database
	for _, entry := range entries {
		if common == nil {
			common = make(map[int64]*catalog.Database, len(entry.Databases))
			for id, db := range entry.Databases {
				common[id] = db
			}
			continue
		}
		for id := range common {
			if _, ok := entry.Databases[id]; !ok {
				delete(common, id)
			}
		}
	}
	if len(common) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(common))
	for id := range common {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	best := common[ids[0]]
	for _, id := range ids[1:] {
		if common[id].Cost < best.Cost {
			best = common[id]
		}
	}
	return best
}
