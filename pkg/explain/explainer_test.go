package explain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/leapstack-labs/sqlexplain/internal/testutil"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// categoryRenderer renders "<category>|<analysis json>".
var categoryRenderer = PromptRendererFunc(func(req core.ExplanationRequest) (string, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req.Analysis()); err != nil {
		return "", err
	}
	return string(req.Category) + "|" + strings.TrimSpace(buf.String()), nil
})

// scriptedGenerator answers each prompt with the reply scripted for its category.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[core.Category]string
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (core.Reply, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	category, _, _ := strings.Cut(prompt, "|")
	body, ok := g.replies[core.Category(category)]
	if !ok {
		return core.Reply{}, errors.New("no scripted reply for " + category)
	}
	return core.Reply{Replies: []string{body}}, nil
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, categoryRenderer)
	assert.ErrorIs(t, err, ErrNoGenerator)

	_, err = New(&scriptedGenerator{}, nil)
	assert.ErrorIs(t, err, ErrNoRenderer)
}

func TestExplain_FilterEndToEnd(t *testing.T) {
	gen := &scriptedGenerator{replies: map[core.Category]string{
		core.CategoryFilter: `{"results":{"filter":["checks that age exceeds 18"]}}`,
	}}
	e, err := New(gen, categoryRenderer, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	records, err := e.Explain(context.Background(), Input{
		Question:        "Which users are adults?",
		SQL:             "SELECT * FROM users WHERE age > 18",
		AnalysisResults: decodeFragments(t, `[{"filter":{"type":"EXPR","node":"age > 18","id":"f1"}}]`),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	data, err := json.Marshal(records)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"type":"filter","payload":{"id":"f1","expression":"age > 18","explanation":"checks that age exceeds 18"}}]`,
		string(data))
	assert.Equal(t, []string{`filter|{"filter":"age > 18"}`}, gen.prompts)
}

func TestExplain_RelationEndToEnd(t *testing.T) {
	gen := &scriptedGenerator{replies: map[core.Category]string{
		core.CategoryRelation: `{"results":{"relation":["matches rows of a and b on id"]}}`,
	}}
	e, err := New(gen, categoryRenderer)
	require.NoError(t, err)

	records, err := e.Explain(context.Background(), Input{
		AnalysisResults: decodeFragments(t, `[{"relation":{
			"type":"INNER_JOIN","id":"j1",
			"criteria":{"expression":"a.id=b.id"},
			"exprSources":[
				{"expression":"a.id","sourceDataset":"a","sourceColumn":"id"},
				{"expression":"b.id","sourceDataset":"b","sourceColumn":"id"}
			],
			"left":{"type":"TABLE","tableName":"a","id":"ta"},
			"right":{"type":"TABLE","tableName":"b","id":"tb"}
		}}]`),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	data, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"relation","payload":{
		"id":"j1","type":"INNER_JOIN","criteria":"a.id=b.id",
		"exprSources":[
			{"expression":"a.id","sourceDataset":"a","sourceColumn":"id"},
			{"expression":"b.id","sourceDataset":"b","sourceColumn":"id"}
		],
		"explanation":"matches rows of a and b on id"}}`, string(data))
}

func TestExplain_AllCategories(t *testing.T) {
	gen := &scriptedGenerator{replies: map[core.Category]string{
		core.CategoryFilter:      `{"results":{"filter":["adults"]}}`,
		core.CategoryGroupByKeys: `{"results":{"groupByKeys":["per region"]}}`,
		core.CategorySelectItems: `{"results":{"selectItems":{"withFunctionCallOrMathematicalOperation":["count"],"withoutFunctionCallOrMathematicalOperation":[]}}}`,
		core.CategorySortings:    `{"results":{"sortings":["biggest first"]}}`,
	}}
	obs := &recordingObserver{}
	e, err := New(gen, categoryRenderer, WithObserver(obs), WithMaxConcurrency(2))
	require.NoError(t, err)

	records, err := e.Explain(context.Background(), Input{
		AnalysisResults: decodeFragments(t, `[{
			"filter":{"type":"EXPR","node":"age > 18","id":"f1"},
			"groupByKeys":[[{"expression":"region","id":"g1"}]],
			"selectItems":[{"alias":"n","expression":"count(*)","id":"s1",
				"properties":{"includeFunctionCall":"true","includeMathematicalOperation":"false"}}],
			"sortings":[{"expression":"n","ordering":"DESC","id":"o1"}]
		}]`),
	})
	require.NoError(t, err)

	types := make([]core.Category, 0, len(records))
	for _, r := range records {
		types = append(types, r.Type)
	}
	assert.Equal(t, []core.Category{
		core.CategoryFilter, core.CategoryGroupByKeys, core.CategorySelectItems, core.CategorySortings,
	}, types)
	assert.Equal(t, 4, obs.records)
}

func TestExplain_FailedCategoryIsDropped(t *testing.T) {
	gen := &scriptedGenerator{replies: map[core.Category]string{
		core.CategorySortings: `{"results":{"sortings":["by n"]}}`,
	}}
	e, err := New(gen, categoryRenderer, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	records, err := e.Explain(context.Background(), Input{
		AnalysisResults: decodeFragments(t, `[{
			"filter":{"type":"EXPR","node":"age > 18","id":"f1"},
			"sortings":[{"expression":"n","ordering":"DESC","id":"o1"}]
		}]`),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.CategorySortings, records[0].Type)
}

func TestExplain_NothingToExplain(t *testing.T) {
	gen := &scriptedGenerator{}
	e, err := New(gen, categoryRenderer)
	require.NoError(t, err)

	records, err := e.Explain(context.Background(), Input{
		AnalysisResults: decodeFragments(t, `[{"isSubqueryOrCte":true,"filter":{"type":"EXPR","node":"x"}}]`),
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, gen.prompts)
}

func TestExplain_RenderErrorFailsRun(t *testing.T) {
	broken := PromptRendererFunc(func(core.ExplanationRequest) (string, error) {
		return "", errors.New("bad template")
	})
	e, err := New(&scriptedGenerator{}, broken)
	require.NoError(t, err)

	_, err = e.Explain(context.Background(), Input{
		AnalysisResults: decodeFragments(t, `[{"filter":{"type":"EXPR","node":"x"}}]`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render filter prompt")
}

func TestExplain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := core.GeneratorFunc(func(ctx context.Context, _ string) (core.Reply, error) {
		return core.Reply{}, ctx.Err()
	})
	e, err := New(gen, categoryRenderer)
	require.NoError(t, err)

	records, err := e.Explain(ctx, Input{
		AnalysisResults: decodeFragments(t, `[{"filter":{"type":"EXPR","node":"x"}}]`),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
}

func TestPrepare_UsesFirstBundleOnly(t *testing.T) {
	e, err := New(&scriptedGenerator{}, categoryRenderer)
	require.NoError(t, err)

	bundle, prompts, err := e.Prepare(Input{
		AnalysisResults: decodeFragments(t, `[
			{"sortings":[{"expression":"a","ordering":"ASC"}]},
			{"filter":{"type":"EXPR","node":"b > 1"}}
		]`),
	})
	require.NoError(t, err)
	require.NotNil(t, bundle)
	require.Len(t, prompts, 1)
	assert.Equal(t, core.CategorySortings, prompts[0].Request.Category)
	assert.Equal(t, `sortings|{"sortings":["a ASC"]}`, prompts[0].Text)
}
