package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplanationRecord_MarshalShapes(t *testing.T) {
	tests := []struct {
		name   string
		record ExplanationRecord
		want   string
	}{
		{
			name:   "sorting",
			record: NewRecord(CategorySortings, ExplanationUnit{ID: "o1", Kind: UnitSorting, Expression: "n DESC"}, "largest first"),
			want:   `{"type":"sortings","payload":{"id":"o1","expression":"n DESC","explanation":"largest first"}}`,
		},
		{
			name: "table",
			record: NewRecord(CategoryRelation, ExplanationUnit{
				ID: "t1", Kind: UnitRelationTable,
				Table: &TableValue{Type: RelationTable, TableName: "users"},
			}, "user rows"),
			want: `{"type":"relation","payload":{"id":"t1","type":"TABLE","tableName":"users","explanation":"user rows"}}`,
		},
		{
			name: "join without sources",
			record: NewRecord(CategoryRelation, ExplanationUnit{
				ID: "j1", Kind: UnitRelationJoin,
				Join: &JoinValue{Type: RelationCrossJoin},
			}, "every pair"),
			want: `{"type":"relation","payload":{"id":"j1","type":"CROSS_JOIN","criteria":"","exprSources":[],"explanation":"every pair"}}`,
		},
		{
			name: "plain select item",
			record: NewRecord(CategorySelectItems, ExplanationUnit{
				ID: "s2", Kind: UnitSelectWithoutOperation,
				Select: &SelectValue{Alias: "region", Expression: "c.region"},
			}, "the region"),
			want: `{"type":"selectItems","payload":{"id":"s2","alias":"region","expression":"c.region","isFunctionCallOrMathematicalOperation":false,"explanation":"the region"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.record)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestExplanationRecord_UnmarshalInfersKind(t *testing.T) {
	records := []ExplanationRecord{
		NewRecord(CategoryFilter, ExplanationUnit{ID: "f1", Kind: UnitFilter, Expression: "x > 1"}, "big x"),
		NewRecord(CategoryRelation, ExplanationUnit{ID: "t1", Kind: UnitRelationTable, Table: &TableValue{Type: RelationTable, TableName: "t"}}, "t rows"),
		NewRecord(CategoryRelation, ExplanationUnit{ID: "j1", Kind: UnitRelationJoin, Join: &JoinValue{
			Type: RelationInnerJoin, Criteria: "a.id = b.id",
			ExprSources: []ExprSource{{Expression: "a.id", SourceDataset: "a", SourceColumn: "id"}},
		}}, "matching ids"),
		NewRecord(CategorySelectItems, ExplanationUnit{ID: "s1", Kind: UnitSelectWithOperation, Select: &SelectValue{Alias: "n", Expression: "count(*)"}}, "row count"),
	}

	data, err := json.Marshal(records)
	require.NoError(t, err)

	var decoded []ExplanationRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, records, decoded)
}

func TestExplanationRecord_UnmarshalUnknownType(t *testing.T) {
	var r ExplanationRecord
	err := json.Unmarshal([]byte(`{"type":"windows","payload":{}}`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "windows")
}

func TestExplanationBundle_Has(t *testing.T) {
	b := ExplanationBundle{
		SelectItems: SelectUnits{WithoutOperation: []ExplanationUnit{{ID: "s"}}},
	}
	assert.True(t, b.Has(CategorySelectItems))
	assert.False(t, b.Has(CategoryFilter))
	assert.False(t, b.Has("unknown"))

	filter := ExplanationUnit{Kind: UnitFilter}
	b.Filter = &filter
	assert.True(t, b.Has(CategoryFilter), "an empty filter unit still counts as present")
}
