package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFilter(t *testing.T) {
	node, err := DecodeFilter([]byte(`{
		"type": "or", "id": "root",
		"left": {"type": "EXPR", "node": "a = 1", "id": "l"},
		"right": {"type": "NOT", "id": "n"}
	}`))
	require.NoError(t, err)

	root, ok := node.(*FilterLogical)
	require.True(t, ok)
	assert.Equal(t, FilterOr, root.Op)
	assert.Equal(t, "root", root.NodeID())

	left, ok := root.Left.(*FilterExpr)
	require.True(t, ok)
	assert.Equal(t, "a = 1", left.Expression)

	right, ok := root.Right.(*FilterUnknown)
	require.True(t, ok)
	assert.Equal(t, "NOT", right.Type)
}

func TestDecodeFilter_Null(t *testing.T) {
	for _, in := range []string{"null", "", "  "} {
		node, err := DecodeFilter([]byte(in))
		require.NoError(t, err)
		assert.Nil(t, node)
	}
}

func TestDecodeFilter_Invalid(t *testing.T) {
	_, err := DecodeFilter([]byte(`{"type": 1}`))
	assert.Error(t, err)
}

func TestDecodeRelation(t *testing.T) {
	node, err := DecodeRelation([]byte(`{
		"type": "LEFT_JOIN", "id": "j",
		"criteria": {"expression": "o.cid = c.id"},
		"exprSources": [{"expression": "o.cid", "sourceDataset": "orders", "sourceColumn": "cid"}],
		"left": {"type": "TABLE", "tableName": "orders", "alias": "o"},
		"right": {"type": "SUBQUERY", "alias": "c", "id": "sq"}
	}`))
	require.NoError(t, err)

	j, ok := node.(*JoinRelation)
	require.True(t, ok)
	assert.Equal(t, RelationLeftJoin, j.Kind())
	assert.Equal(t, "o.cid = c.id", j.Criteria)
	require.Len(t, j.ExprSources, 1)
	assert.Equal(t, "cid", j.ExprSources[0].SourceColumn)

	left, ok := j.Left.(*TableRelation)
	require.True(t, ok)
	assert.Equal(t, "orders", left.TableName)
	assert.Equal(t, "o", left.Alias)

	assert.Equal(t, RelationSubquery, j.Right.Kind())
	assert.Equal(t, "sq", j.Right.NodeID())
}

func TestDecodeRelation_CrossJoinWithoutCriteria(t *testing.T) {
	node, err := DecodeRelation([]byte(`{
		"type": "CROSS_JOIN",
		"left": {"type": "TABLE", "tableName": "a"},
		"right": {"type": "TABLE", "tableName": "b"}
	}`))
	require.NoError(t, err)
	j := node.(*JoinRelation)
	assert.Equal(t, "", j.Criteria)
	assert.Empty(t, j.ExprSources)
}

func TestDecodeRelation_Unknown(t *testing.T) {
	node, err := DecodeRelation([]byte(`{"type": "LATERAL", "id": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, RelationKind("LATERAL"), node.Kind())
	assert.False(t, node.Kind().IsJoin())
}

func TestRelationKind_IsJoin(t *testing.T) {
	for _, k := range []RelationKind{
		RelationInnerJoin, RelationLeftJoin, RelationRightJoin,
		RelationFullJoin, RelationCrossJoin, RelationImplicitJoin,
	} {
		assert.True(t, k.IsJoin(), k)
	}
	assert.False(t, RelationTable.IsJoin())
	assert.False(t, RelationSubquery.IsJoin())
}

func TestSelectItem_HasOperation(t *testing.T) {
	tests := []struct {
		name  string
		props string
		want  bool
	}{
		{"function call", `{"includeFunctionCall": "true", "includeMathematicalOperation": "false"}`, true},
		{"arithmetic", `{"includeFunctionCall": "false", "includeMathematicalOperation": "true"}`, true},
		{"plain column", `{"includeFunctionCall": "false", "includeMathematicalOperation": "false"}`, false},
		{"boolean flags", `{"includeFunctionCall": true}`, true},
		{"other string", `{"includeFunctionCall": "yes"}`, false},
		{"missing", `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item SelectItem
			require.NoError(t, json.Unmarshal([]byte(`{"alias":"x","expression":"x","properties":`+tt.props+`}`), &item))
			assert.Equal(t, tt.want, item.HasOperation())
		})
	}
}

func TestAnalysisFragment_Unmarshal(t *testing.T) {
	var f AnalysisFragment
	require.NoError(t, json.Unmarshal([]byte(`{
		"filter": {"type": "EXPR", "node": "x > 1"},
		"groupByKeys": [[{"expression": "a"}], [{"expression": "b", "id": "g2"}]],
		"sortings": [{"expression": "a", "ordering": "ASC"}],
		"isSubqueryOrCte": true
	}`), &f))

	assert.NotNil(t, f.Filter)
	assert.Nil(t, f.Relation)
	assert.Len(t, f.GroupByKeys, 2)
	assert.Len(t, f.Sortings, 1)
	assert.Nil(t, f.SelectItems)
	assert.True(t, f.IsSubqueryOrCte)
}

func TestAnalysisFragment_NestedSortings(t *testing.T) {
	var f AnalysisFragment
	require.NoError(t, json.Unmarshal([]byte(`{
		"sortings": [[{"expression": "a", "ordering": "ASC"}], [{"expression": "b", "ordering": "DESC"}]]
	}`), &f))

	require.Len(t, f.Sortings, 2)
	assert.Equal(t, "b", f.Sortings[1].Expression)
	assert.Equal(t, "DESC", f.Sortings[1].Ordering)
}

func TestAnalysisFragment_InvalidSortings(t *testing.T) {
	var f AnalysisFragment
	err := json.Unmarshal([]byte(`{"sortings": "a ASC"}`), &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode sortings")
}

func TestStep_Unmarshal(t *testing.T) {
	var s Step
	require.NoError(t, json.Unmarshal([]byte(`{
		"sql": "SELECT 1", "summary": "one", "cte_name": "c",
		"sql_analysis_results": [{"filter": {"type": "EXPR", "node": "1 = 1"}}]
	}`), &s))

	assert.Equal(t, "SELECT 1", s.SQL)
	assert.Equal(t, "c", s.CTEName)
	require.Len(t, s.AnalysisResults, 1)
	assert.NotNil(t, s.AnalysisResults[0].Filter)
}
