package core

import (
	"encoding/json"
	"fmt"
)

// Category is the kind-group a request and its reply address.
type Category string

// Explanation categories.
const (
	CategoryFilter      Category = "filter"
	CategoryGroupByKeys Category = "groupByKeys"
	CategoryRelation    Category = "relation"
	CategorySelectItems Category = "selectItems"
	CategorySortings    Category = "sortings"
)

// Categories lists every category in the fixed order used to build requests
// and to match replies.
var Categories = []Category{
	CategoryFilter,
	CategoryGroupByKeys,
	CategoryRelation,
	CategorySelectItems,
	CategorySortings,
}

// Keys of the two select-item sub-lists, shared by prompts and replies.
const (
	WithOperationKey    = "withFunctionCallOrMathematicalOperation"
	WithoutOperationKey = "withoutFunctionCallOrMathematicalOperation"
)

// UnitKind identifies what an ExplanationUnit describes.
type UnitKind string

// Unit kinds.
const (
	UnitFilter                 UnitKind = "filter"
	UnitGroupByKey             UnitKind = "groupByKeys"
	UnitSorting                UnitKind = "sortings"
	UnitRelationTable          UnitKind = "relation-table"
	UnitRelationJoin           UnitKind = "relation-join"
	UnitSelectWithOperation    UnitKind = "select-with-op"
	UnitSelectWithoutOperation UnitKind = "select-without-op"
)

// TableValue is the rendered value of a top-level table reference.
type TableValue struct {
	Type      RelationKind `json:"type"`
	TableName string       `json:"tableName"`
}

// JoinValue is the rendered value of a join node.
type JoinValue struct {
	Type        RelationKind `json:"type"`
	Criteria    string       `json:"criteria"`
	ExprSources []ExprSource `json:"exprSources"`
}

// SelectValue is the rendered value of a select item.
type SelectValue struct {
	Alias      string `json:"alias"`
	Expression string `json:"expression"`
}

// ExplanationUnit is the atomic thing a model is asked to explain.
// Exactly one of Expression, Table, Join or Select is meaningful, chosen by Kind.
type ExplanationUnit struct {
	ID         string
	Kind       UnitKind
	Expression string
	Table      *TableValue
	Join       *JoinValue
	Select     *SelectValue
}

// Values returns the unit's renderable value without its id.
func (u ExplanationUnit) Values() any {
	switch u.Kind {
	case UnitRelationTable:
		if u.Table != nil {
			return *u.Table
		}
	case UnitRelationJoin:
		if u.Join != nil {
			return *u.Join
		}
	case UnitSelectWithOperation, UnitSelectWithoutOperation:
		if u.Select != nil {
			return *u.Select
		}
	default:
		return u.Expression
	}
	return nil
}

// SelectUnits holds select items split by whether they compute something.
type SelectUnits struct {
	WithOperation    []ExplanationUnit
	WithoutOperation []ExplanationUnit
}

// Empty reports whether both sub-lists are empty.
func (s SelectUnits) Empty() bool {
	return len(s.WithOperation) == 0 && len(s.WithoutOperation) == 0
}

// ExplanationBundle is one statement's units grouped by category.
type ExplanationBundle struct {
	Filter      *ExplanationUnit
	GroupByKeys []ExplanationUnit
	Relation    []ExplanationUnit
	SelectItems SelectUnits
	Sortings    []ExplanationUnit
}

// Has reports whether the bundle holds any unit for the category.
func (b ExplanationBundle) Has(c Category) bool {
	switch c {
	case CategoryFilter:
		return b.Filter != nil
	case CategoryGroupByKeys:
		return len(b.GroupByKeys) > 0
	case CategoryRelation:
		return len(b.Relation) > 0
	case CategorySelectItems:
		return !b.SelectItems.Empty()
	case CategorySortings:
		return len(b.Sortings) > 0
	default:
		return false
	}
}

// Units returns the bundle's units for a list-shaped category.
func (b ExplanationBundle) Units(c Category) []ExplanationUnit {
	switch c {
	case CategoryGroupByKeys:
		return b.GroupByKeys
	case CategoryRelation:
		return b.Relation
	case CategorySortings:
		return b.Sortings
	default:
		return nil
	}
}

// SelectValues is the id-free prompt payload for select items.
type SelectValues struct {
	WithOperation    []any `json:"withFunctionCallOrMathematicalOperation"`
	WithoutOperation []any `json:"withoutFunctionCallOrMathematicalOperation"`
}

// ExplanationRequest asks for the explanation of one category of one statement.
type ExplanationRequest struct {
	Category Category
	Values   any
	Question string
	SQL      string
	Summary  string
	Hint     string
}

// Analysis returns the request's analysis payload keyed by category.
func (r ExplanationRequest) Analysis() map[string]any {
	return map[string]any{string(r.Category): r.Values}
}

// ---------- Records ----------

// RecordPayload carries a unit's identity, its rendered fields and the explanation.
type RecordPayload struct {
	ID                                    string
	Kind                                  UnitKind
	Expression                            string
	Alias                                 string
	RelationType                          RelationKind
	TableName                             string
	Criteria                              string
	ExprSources                           []ExprSource
	IsFunctionCallOrMathematicalOperation bool
	Explanation                           string
}

// ExplanationRecord is one finalized explanation.
type ExplanationRecord struct {
	Type    Category
	Payload RecordPayload
}

// NewRecord pairs a unit with its explanation.
func NewRecord(c Category, u ExplanationUnit, explanation string) ExplanationRecord {
	p := RecordPayload{ID: u.ID, Kind: u.Kind, Expression: u.Expression, Explanation: explanation}
	switch u.Kind {
	case UnitRelationTable:
		if u.Table != nil {
			p.RelationType = u.Table.Type
			p.TableName = u.Table.TableName
		}
	case UnitRelationJoin:
		if u.Join != nil {
			p.RelationType = u.Join.Type
			p.Criteria = u.Join.Criteria
			p.ExprSources = u.Join.ExprSources
		}
	case UnitSelectWithOperation, UnitSelectWithoutOperation:
		if u.Select != nil {
			p.Alias = u.Select.Alias
			p.Expression = u.Select.Expression
		}
		p.IsFunctionCallOrMathematicalOperation = u.Kind == UnitSelectWithOperation
	}
	return ExplanationRecord{Type: c, Payload: p}
}

type expressionPayload struct {
	ID          string `json:"id"`
	Expression  string `json:"expression"`
	Explanation string `json:"explanation"`
}

type tablePayload struct {
	ID          string       `json:"id"`
	Type        RelationKind `json:"type"`
	TableName   string       `json:"tableName"`
	Explanation string       `json:"explanation"`
}

type joinPayload struct {
	ID          string       `json:"id"`
	Type        RelationKind `json:"type"`
	Criteria    string       `json:"criteria"`
	ExprSources []ExprSource `json:"exprSources"`
	Explanation string       `json:"explanation"`
}

type selectPayload struct {
	ID                                    string `json:"id"`
	Alias                                 string `json:"alias"`
	Expression                            string `json:"expression"`
	IsFunctionCallOrMathematicalOperation bool   `json:"isFunctionCallOrMathematicalOperation"`
	Explanation                           string `json:"explanation"`
}

// MarshalJSON emits the payload shape for the payload's unit kind.
func (p RecordPayload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case UnitRelationTable:
		return json.Marshal(tablePayload{p.ID, p.RelationType, p.TableName, p.Explanation})
	case UnitRelationJoin:
		sources := p.ExprSources
		if sources == nil {
			sources = []ExprSource{}
		}
		return json.Marshal(joinPayload{p.ID, p.RelationType, p.Criteria, sources, p.Explanation})
	case UnitSelectWithOperation, UnitSelectWithoutOperation:
		return json.Marshal(selectPayload{p.ID, p.Alias, p.Expression, p.IsFunctionCallOrMathematicalOperation, p.Explanation})
	default:
		return json.Marshal(expressionPayload{p.ID, p.Expression, p.Explanation})
	}
}

type recordJSON struct {
	Type    Category      `json:"type"`
	Payload RecordPayload `json:"payload"`
}

// MarshalJSON implements json.Marshaler.
func (r ExplanationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{Type: r.Type, Payload: r.Payload})
}

// UnmarshalJSON restores a record, inferring the unit kind from type and fields.
func (r *ExplanationRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    Category `json:"type"`
		Payload struct {
			ID                                    string       `json:"id"`
			Type                                  RelationKind `json:"type"`
			Expression                            string       `json:"expression"`
			Alias                                 string       `json:"alias"`
			TableName                             *string      `json:"tableName"`
			Criteria                              string       `json:"criteria"`
			ExprSources                           []ExprSource `json:"exprSources"`
			IsFunctionCallOrMathematicalOperation bool         `json:"isFunctionCallOrMathematicalOperation"`
			Explanation                           string       `json:"explanation"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode explanation record: %w", err)
	}

	pl := raw.Payload
	p := RecordPayload{
		ID:                                    pl.ID,
		Expression:                            pl.Expression,
		Alias:                                 pl.Alias,
		RelationType:                          pl.Type,
		Criteria:                              pl.Criteria,
		ExprSources:                           pl.ExprSources,
		IsFunctionCallOrMathematicalOperation: pl.IsFunctionCallOrMathematicalOperation,
		Explanation:                           pl.Explanation,
	}
	switch raw.Type {
	case CategoryFilter:
		p.Kind = UnitFilter
	case CategoryGroupByKeys:
		p.Kind = UnitGroupByKey
	case CategorySortings:
		p.Kind = UnitSorting
	case CategoryRelation:
		if pl.TableName != nil {
			p.Kind = UnitRelationTable
			p.TableName = *pl.TableName
		} else {
			p.Kind = UnitRelationJoin
		}
	case CategorySelectItems:
		if pl.IsFunctionCallOrMathematicalOperation {
			p.Kind = UnitSelectWithOperation
		} else {
			p.Kind = UnitSelectWithoutOperation
		}
	default:
		return fmt.Errorf("unknown explanation record type %q", raw.Type)
	}

	*r = ExplanationRecord{Type: raw.Type, Payload: p}
	return nil
}
