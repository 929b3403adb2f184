package explain

import "github.com/leapstack-labs/sqlexplain/pkg/core"

// Compose flattens every fragment that is not itself a subquery or CTE body
// into a bundle. Absent keys become empty categories, so every bundle has the
// same shape. Bundles are returned in input order.
func Compose(fragments []core.AnalysisFragment, cteNames []string, selectedDataSources [][]core.DataSource) []core.ExplanationBundle {
	bundles := make([]core.ExplanationBundle, 0, len(fragments))
	for _, fragment := range fragments {
		if fragment.IsSubqueryOrCte {
			continue
		}
		bundles = append(bundles, composeFragment(fragment, cteNames, selectedDataSources))
	}
	return bundles
}

func composeFragment(fragment core.AnalysisFragment, cteNames []string, selectedDataSources [][]core.DataSource) core.ExplanationBundle {
	bundle := core.ExplanationBundle{
		GroupByKeys: FlattenGroupByKeys(fragment.GroupByKeys),
		Relation:    []core.ExplanationUnit{},
		SelectItems: FlattenSelectItems(fragment.SelectItems, selectedDataSources),
		Sortings:    FlattenSortings(fragment.Sortings),
	}
	if fragment.Filter != nil {
		unit := FlattenFilter(fragment.Filter)
		bundle.Filter = &unit
	}
	if fragment.Relation != nil {
		bundle.Relation = FlattenRelation(fragment.Relation, cteNames)
	}
	return bundle
}
