package explain

import "github.com/leapstack-labs/sqlexplain/pkg/core"

// PromptContext is the caller-supplied context attached to every request.
type PromptContext struct {
	Question string
	SQL      string
	Summary  string
}

// BuildRequests emits one request per non-empty category of the bundle, in
// the order of core.Categories. Unit ids are stripped from the payload; the
// reconciler relies on this order to pair replies with units.
func BuildRequests(bundle core.ExplanationBundle, pc PromptContext) []core.ExplanationRequest {
	var requests []core.ExplanationRequest
	for _, category := range core.Categories {
		if !bundle.Has(category) {
			continue
		}
		requests = append(requests, core.ExplanationRequest{
			Category: category,
			Values:   categoryValues(bundle, category),
			Question: pc.Question,
			SQL:      pc.SQL,
			Summary:  pc.Summary,
			Hint:     HintFor(category),
		})
	}
	return requests
}

func categoryValues(bundle core.ExplanationBundle, category core.Category) any {
	switch category {
	case core.CategoryFilter:
		return bundle.Filter.Values()
	case core.CategorySelectItems:
		return core.SelectValues{
			WithOperation:    stripIDs(bundle.SelectItems.WithOperation),
			WithoutOperation: stripIDs(bundle.SelectItems.WithoutOperation),
		}
	default:
		return stripIDs(bundle.Units(category))
	}
}

func stripIDs(units []core.ExplanationUnit) []any {
	values := make([]any, 0, len(units))
	for _, u := range units {
		values = append(values, u.Values())
	}
	return values
}
