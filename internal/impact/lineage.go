package impact

import (
	"context"

	"github.com/dcmio/dcm/internal/store"
)

// LineageNode is one asset reached while traversing AssetDependency edges.
type LineageNode struct {
	AssetID string
	Depth   int
}

// TraverseLineage walks the asset dependency graph breadth-first from
// assetID, up to maxDepth hops, in the given direction ("upstream",
// "downstream", or "both"). It is supplemental to spec §4.4's single-asset
// impact analysis: a producer asking "what would ripple if this asset's
// upstream changed three hops back" needs the multi-hop view, not just the
// asset's own direct registrations. Cycles are broken by never revisiting an
// asset ID, so a dependency loop terminates the walk instead of looping
// forever.
func TraverseLineage(ctx context.Context, tx store.Tx, assetID, direction string, maxDepth int) ([]LineageNode, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}

	visited := map[string]bool{assetID: true}
	frontier := []string{assetID}
	var out []LineageNode

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			neighbors, err := neighborsOf(ctx, tx, id, direction)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				out = append(out, LineageNode{AssetID: n, Depth: depth})
				next = append(next, n)
			}
		}
		frontier = next
	}

	return out, nil
}

func neighborsOf(ctx context.Context, tx store.Tx, assetID, direction string) ([]string, error) {
	switch direction {
	case "upstream":
		return tx.ListUpstream(ctx, assetID)
	case "downstream":
		return tx.ListDownstream(ctx, assetID)
	default:
		up, err := tx.ListUpstream(ctx, assetID)
		if err != nil {
			return nil, err
		}
		down, err := tx.ListDownstream(ctx, assetID)
		if err != nil {
			return nil, err
		}
		return append(up, down...), nil
	}
}
