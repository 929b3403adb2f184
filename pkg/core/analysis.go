package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ---------- Filter Trees ----------

// FilterOp is the boolean operator of an internal filter node.
type FilterOp string

// Filter node kinds as emitted by the SQL analyzer.
const (
	FilterKindExpr = "EXPR"
	FilterAnd      FilterOp = "AND"
	FilterOr       FilterOp = "OR"
)

// FilterNode is a node of a boolean filter tree.
// The set of implementations is closed: FilterExpr, FilterLogical and FilterUnknown.
type FilterNode interface {
	NodeID() string
	filterNode()
}

// FilterExpr is a leaf holding a literal predicate, e.g. "age > 18".
type FilterExpr struct {
	ID         string
	Expression string
}

func (*FilterExpr) filterNode() {}

// NodeID implements FilterNode.
func (f *FilterExpr) NodeID() string { return f.ID }

// FilterLogical joins two subtrees with AND or OR.
type FilterLogical struct {
	ID    string
	Op    FilterOp
	Left  FilterNode
	Right FilterNode
}

func (*FilterLogical) filterNode() {}

// NodeID implements FilterNode.
func (f *FilterLogical) NodeID() string { return f.ID }

// FilterUnknown is a node whose type the analyzer reported but we do not recognize.
type FilterUnknown struct {
	ID   string
	Type string
}

func (*FilterUnknown) filterNode() {}

// NodeID implements FilterNode.
func (f *FilterUnknown) NodeID() string { return f.ID }

type rawFilter struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Node  string          `json:"node"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
}

// DecodeFilter decodes an analyzer filter tree. A JSON null yields a nil node.
func DecodeFilter(data []byte) (FilterNode, error) {
	if isNull(data) {
		return nil, nil
	}
	var raw rawFilter
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}

	switch op := FilterOp(strings.ToUpper(raw.Type)); op {
	case FilterKindExpr:
		return &FilterExpr{ID: raw.ID, Expression: raw.Node}, nil
	case FilterAnd, FilterOr:
		left, err := DecodeFilter(raw.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeFilter(raw.Right)
		if err != nil {
			return nil, err
		}
		return &FilterLogical{ID: raw.ID, Op: op, Left: left, Right: right}, nil
	default:
		return &FilterUnknown{ID: raw.ID, Type: raw.Type}, nil
	}
}

// ---------- Relation Trees ----------

// RelationKind is the analyzer's node type for a relation.
type RelationKind string

// Relation kinds.
const (
	RelationTable        RelationKind = "TABLE"
	RelationSubquery     RelationKind = "SUBQUERY"
	RelationInnerJoin    RelationKind = "INNER_JOIN"
	RelationLeftJoin     RelationKind = "LEFT_JOIN"
	RelationRightJoin    RelationKind = "RIGHT_JOIN"
	RelationFullJoin     RelationKind = "FULL_JOIN"
	RelationCrossJoin    RelationKind = "CROSS_JOIN"
	RelationImplicitJoin RelationKind = "IMPLICIT_JOIN"
)

// IsJoin reports whether k is one of the join kinds.
func (k RelationKind) IsJoin() bool {
	switch k {
	case RelationInnerJoin, RelationLeftJoin, RelationRightJoin,
		RelationFullJoin, RelationCrossJoin, RelationImplicitJoin:
		return true
	}
	return false
}

// RelationNode is a node of a join tree.
// Implementations: TableRelation, SubqueryRelation, JoinRelation and UnknownRelation.
type RelationNode interface {
	Kind() RelationKind
	NodeID() string
	relationNode()
}

// TableRelation is a base table (or CTE) reference.
type TableRelation struct {
	ID        string
	TableName string
	Alias     string
}

func (*TableRelation) relationNode() {}

// Kind implements RelationNode.
func (*TableRelation) Kind() RelationKind { return RelationTable }

// NodeID implements RelationNode.
func (t *TableRelation) NodeID() string { return t.ID }

// SubqueryRelation is a derived table. Its body is explained separately.
type SubqueryRelation struct {
	ID    string
	Alias string
}

func (*SubqueryRelation) relationNode() {}

// Kind implements RelationNode.
func (*SubqueryRelation) Kind() RelationKind { return RelationSubquery }

// NodeID implements RelationNode.
func (s *SubqueryRelation) NodeID() string { return s.ID }

// JoinRelation combines two relations.
type JoinRelation struct {
	ID          string
	Type        RelationKind
	Criteria    string
	ExprSources []ExprSource
	Left        RelationNode
	Right       RelationNode
}

func (*JoinRelation) relationNode() {}

// Kind implements RelationNode.
func (j *JoinRelation) Kind() RelationKind { return j.Type }

// NodeID implements RelationNode.
func (j *JoinRelation) NodeID() string { return j.ID }

// UnknownRelation is a relation node of an unrecognized type.
type UnknownRelation struct {
	ID   string
	Type string
}

func (*UnknownRelation) relationNode() {}

// Kind implements RelationNode.
func (u *UnknownRelation) Kind() RelationKind { return RelationKind(u.Type) }

// NodeID implements RelationNode.
func (u *UnknownRelation) NodeID() string { return u.ID }

type rawRelation struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	TableName string `json:"tableName"`
	Alias     string `json:"alias"`
	Criteria  *struct {
		Expression string `json:"expression"`
	} `json:"criteria"`
	ExprSources []ExprSource    `json:"exprSources"`
	Left        json.RawMessage `json:"left"`
	Right       json.RawMessage `json:"right"`
}

// DecodeRelation decodes an analyzer join tree. A JSON null yields a nil node.
func DecodeRelation(data []byte) (RelationNode, error) {
	if isNull(data) {
		return nil, nil
	}
	var raw rawRelation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode relation: %w", err)
	}

	kind := RelationKind(strings.ToUpper(raw.Type))
	switch {
	case kind == RelationTable:
		return &TableRelation{ID: raw.ID, TableName: raw.TableName, Alias: raw.Alias}, nil
	case kind == RelationSubquery:
		return &SubqueryRelation{ID: raw.ID, Alias: raw.Alias}, nil
	case kind.IsJoin():
		left, err := DecodeRelation(raw.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeRelation(raw.Right)
		if err != nil {
			return nil, err
		}
		join := &JoinRelation{
			ID:          raw.ID,
			Type:        kind,
			ExprSources: raw.ExprSources,
			Left:        left,
			Right:       right,
		}
		if raw.Criteria != nil {
			join.Criteria = raw.Criteria.Expression
		}
		return join, nil
	default:
		return &UnknownRelation{ID: raw.ID, Type: raw.Type}, nil
	}
}

// ---------- Keys, Select Items, Sources ----------

// ExprSource names the dataset and column an expression reads from.
type ExprSource struct {
	Expression    string `json:"expression"`
	SourceDataset string `json:"sourceDataset"`
	SourceColumn  string `json:"sourceColumn"`
}

// DataSource identifies a column that has already been surfaced to the user.
type DataSource struct {
	SourceDataset string `json:"sourceDataset"`
	SourceColumn  string `json:"sourceColumn"`
}

// GroupByKey is one GROUP BY key.
type GroupByKey struct {
	ID         string `json:"id,omitempty"`
	Expression string `json:"expression"`
}

// SortKey is one ORDER BY key.
type SortKey struct {
	ID         string `json:"id,omitempty"`
	Expression string `json:"expression"`
	Ordering   string `json:"ordering"`
}

// SelectProperties are the analyzer's flags for a projected expression.
// Values are strings ("true"/"false"); JSON booleans are accepted too.
type SelectProperties struct {
	IncludeFunctionCall          string `json:"includeFunctionCall"`
	IncludeMathematicalOperation string `json:"includeMathematicalOperation"`
}

// UnmarshalJSON accepts both string and boolean flag values.
func (p *SelectProperties) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode select properties: %w", err)
	}
	p.IncludeFunctionCall = flagString(raw["includeFunctionCall"])
	p.IncludeMathematicalOperation = flagString(raw["includeMathematicalOperation"])
	return nil
}

func flagString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// SelectItem is one projected expression of a SELECT list.
type SelectItem struct {
	ID          string           `json:"id,omitempty"`
	Alias       string           `json:"alias"`
	Expression  string           `json:"expression"`
	Properties  SelectProperties `json:"properties"`
	ExprSources []ExprSource     `json:"exprSources,omitempty"`
}

// HasOperation reports whether the item contains a function call or arithmetic.
func (s SelectItem) HasOperation() bool {
	return s.Properties.IncludeFunctionCall == "true" ||
		s.Properties.IncludeMathematicalOperation == "true"
}

// ---------- Analysis Fragment ----------

// AnalysisFragment is the analyzer's output for one statement.
// A nil Filter/Relation or nil slice means the key was absent.
type AnalysisFragment struct {
	Filter          FilterNode
	Relation        RelationNode
	GroupByKeys     [][]GroupByKey
	Sortings        []SortKey
	SelectItems     []SelectItem
	IsSubqueryOrCte bool
}

type rawFragment struct {
	Filter          json.RawMessage `json:"filter"`
	Relation        json.RawMessage `json:"relation"`
	GroupByKeys     [][]GroupByKey  `json:"groupByKeys"`
	Sortings        json.RawMessage `json:"sortings"`
	SelectItems     []SelectItem    `json:"selectItems"`
	IsSubqueryOrCte bool            `json:"isSubqueryOrCte"`
}

// UnmarshalJSON decodes the analyzer's JSON into the tagged node types.
func (a *AnalysisFragment) UnmarshalJSON(data []byte) error {
	var raw rawFragment
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode analysis fragment: %w", err)
	}

	filter, err := DecodeFilter(raw.Filter)
	if err != nil {
		return err
	}
	relation, err := DecodeRelation(raw.Relation)
	if err != nil {
		return err
	}
	sortings, err := decodeSortings(raw.Sortings)
	if err != nil {
		return err
	}

	*a = AnalysisFragment{
		Filter:          filter,
		Relation:        relation,
		GroupByKeys:     raw.GroupByKeys,
		Sortings:        sortings,
		SelectItems:     raw.SelectItems,
		IsSubqueryOrCte: raw.IsSubqueryOrCte,
	}
	return nil
}

// decodeSortings accepts a flat list of keys or a list of key lists.
func decodeSortings(data []byte) ([]SortKey, error) {
	if isNull(data) {
		return nil, nil
	}
	var flat []SortKey
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}
	var nested [][]SortKey
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("decode sortings: %w", err)
	}
	keys := make([]SortKey, 0, len(nested))
	for _, group := range nested {
		keys = append(keys, group...)
	}
	return keys, nil
}

func isNull(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed == "" || trimmed == "null"
}

// Step is one statement of a (possibly CTE-decomposed) query, with its analysis.
type Step struct {
	SQL             string             `json:"sql"`
	Summary         string             `json:"summary"`
	CTEName         string             `json:"cte_name"`
	AnalysisResults []AnalysisFragment `json:"sql_analysis_results"`
}
