package explain

import "github.com/leapstack-labs/sqlexplain/pkg/core"

var hints = map[core.Category]string{
	core.CategoryFilter:      "Explain the filter condition in the SQL query.",
	core.CategoryGroupByKeys: "Explain the group by keys in the SQL query.",
	core.CategoryRelation:    "Explain the relation in the SQL query.",
	core.CategorySelectItems: "Explain the select items in the SQL query.",
	core.CategorySortings:    "Explain the sortings in the SQL query.",
}

// HintFor returns the instruction hint for a category, or "" if unknown.
func HintFor(c core.Category) string {
	return hints[c]
}
