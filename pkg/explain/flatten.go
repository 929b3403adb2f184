package explain

import (
	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// ---------- Filter ----------

// FlattenFilter renders a whole filter tree into a single unit.
// Internal nodes are concatenated as "<left> <OP> <right>" without parentheses.
// Only the root's id survives; an unrecognized root yields an empty unit.
func FlattenFilter(root core.FilterNode) core.ExplanationUnit {
	unit := core.ExplanationUnit{Kind: core.UnitFilter}
	switch n := root.(type) {
	case *core.FilterExpr:
		unit.ID = n.ID
		unit.Expression = n.Expression
	case *core.FilterLogical:
		unit.ID = n.ID
		unit.Expression = renderFilter(n)
	}
	return unit
}

func renderFilter(node core.FilterNode) string {
	switch n := node.(type) {
	case *core.FilterExpr:
		return n.Expression
	case *core.FilterLogical:
		return renderFilter(n.Left) + " " + string(n.Op) + " " + renderFilter(n.Right)
	default:
		return ""
	}
}

// ---------- Group By / Sortings ----------

// FlattenGroupByKeys emits one unit per innermost key, in order.
func FlattenGroupByKeys(groups [][]core.GroupByKey) []core.ExplanationUnit {
	units := []core.ExplanationUnit{}
	for _, group := range groups {
		for _, key := range group {
			units = append(units, core.ExplanationUnit{
				ID:         key.ID,
				Kind:       core.UnitGroupByKey,
				Expression: key.Expression,
			})
		}
	}
	return units
}

// FlattenSortings emits one unit per key rendered as "<expression> <ordering>".
func FlattenSortings(keys []core.SortKey) []core.ExplanationUnit {
	units := make([]core.ExplanationUnit, 0, len(keys))
	for _, key := range keys {
		units = append(units, core.ExplanationUnit{
			ID:         key.ID,
			Kind:       core.UnitSorting,
			Expression: key.Expression + " " + key.Ordering,
		})
	}
	return units
}

// ---------- Relation ----------

// relationOutcome is what the walker does with a visited node.
type relationOutcome int

const (
	relationSkip relationOutcome = iota // contributes nothing, children not visited
	relationEmit                        // emits a unit, children not visited
	relationEmitAndDescend              // emits a unit, then visits left and right
)

// FlattenRelation collects the explainable relations of a join tree in
// pre-order. Subqueries, joins with a subquery child, CTE references and
// table leaves nested under a join contribute nothing.
func FlattenRelation(root core.RelationNode, cteNames []string) []core.ExplanationUnit {
	w := &relationWalker{
		ctes:  make(map[string]struct{}, len(cteNames)),
		units: []core.ExplanationUnit{},
	}
	for _, name := range cteNames {
		w.ctes[name] = struct{}{}
	}
	w.walk(root, true)
	return w.units
}

type relationWalker struct {
	ctes  map[string]struct{}
	units []core.ExplanationUnit
}

func (w *relationWalker) walk(node core.RelationNode, topLevel bool) {
	unit, outcome := w.visit(node, topLevel)
	if outcome == relationSkip {
		return
	}
	w.units = append(w.units, unit)
	if outcome == relationEmitAndDescend {
		join := node.(*core.JoinRelation)
		w.walk(join.Left, false)
		w.walk(join.Right, false)
	}
}

func (w *relationWalker) visit(node core.RelationNode, topLevel bool) (core.ExplanationUnit, relationOutcome) {
	if node == nil || isSubqueryOrHasSubqueryChild(node) {
		return core.ExplanationUnit{}, relationSkip
	}

	switch n := node.(type) {
	case *core.TableRelation:
		if !topLevel {
			return core.ExplanationUnit{}, relationSkip
		}
		if _, isCTE := w.ctes[n.TableName]; isCTE {
			return core.ExplanationUnit{}, relationSkip
		}
		return core.ExplanationUnit{
			ID:    n.ID,
			Kind:  core.UnitRelationTable,
			Table: &core.TableValue{Type: core.RelationTable, TableName: n.TableName},
		}, relationEmit
	case *core.JoinRelation:
		sources := make([]core.ExprSource, len(n.ExprSources))
		copy(sources, n.ExprSources)
		return core.ExplanationUnit{
			ID:   n.ID,
			Kind: core.UnitRelationJoin,
			Join: &core.JoinValue{Type: n.Type, Criteria: n.Criteria, ExprSources: sources},
		}, relationEmitAndDescend
	default:
		return core.ExplanationUnit{}, relationSkip
	}
}

func isSubqueryOrHasSubqueryChild(node core.RelationNode) bool {
	if node.Kind() == core.RelationSubquery {
		return true
	}
	if join, ok := node.(*core.JoinRelation); ok {
		return isSubquery(join.Left) || isSubquery(join.Right)
	}
	return false
}

func isSubquery(node core.RelationNode) bool {
	return node != nil && node.Kind() == core.RelationSubquery
}

// ---------- Select Items ----------

// FlattenSelectItems splits select items into those with and without a
// function call or arithmetic. Items whose first expression source is already
// among selectedDataSources are dropped.
func FlattenSelectItems(items []core.SelectItem, selectedDataSources [][]core.DataSource) core.SelectUnits {
	selected := make(map[core.DataSource]struct{})
	for _, group := range selectedDataSources {
		for _, ds := range group {
			selected[ds] = struct{}{}
		}
	}

	result := core.SelectUnits{
		WithOperation:    []core.ExplanationUnit{},
		WithoutOperation: []core.ExplanationUnit{},
	}
	for _, item := range items {
		if alreadySelected(item, selected) {
			continue
		}
		unit := core.ExplanationUnit{
			ID:     item.ID,
			Select: &core.SelectValue{Alias: item.Alias, Expression: item.Expression},
		}
		if item.HasOperation() {
			unit.Kind = core.UnitSelectWithOperation
			result.WithOperation = append(result.WithOperation, unit)
		} else {
			unit.Kind = core.UnitSelectWithoutOperation
			result.WithoutOperation = append(result.WithoutOperation, unit)
		}
	}
	return result
}

func alreadySelected(item core.SelectItem, selected map[core.DataSource]struct{}) bool {
	if len(item.ExprSources) == 0 {
		return false
	}
	primary := item.ExprSources[0]
	_, ok := selected[core.DataSource{SourceDataset: primary.SourceDataset, SourceColumn: primary.SourceColumn}]
	return ok
}
