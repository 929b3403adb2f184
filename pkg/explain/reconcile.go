package explain

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

var errEmptyReply = errors.New("reply contains no generated text")

// Reconciler maps generated explanations back onto a bundle's units.
type Reconciler struct {
	logger   *slog.Logger
	observer Observer
}

// NewReconciler creates a reconciler.
func NewReconciler(observer Observer, logger *slog.Logger) *Reconciler {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger, observer: observer}
}

// Reconcile walks results in request order and emits one record per matched
// unit. Results whose call failed are skipped. The first reply that cannot be
// decoded or matched stops the pass; records gathered before it are returned.
func (r *Reconciler) Reconcile(bundle core.ExplanationBundle, results []Result) []core.ExplanationRecord {
	records := []core.ExplanationRecord{}
	for i, res := range results {
		if res.Err != nil {
			r.logger.Warn("skipping failed explanation call",
				slog.Int("index", i),
				slog.String("category", string(res.Request.Category)),
				slog.Any("error", res.Err))
			continue
		}

		matched, err := r.reconcileReply(bundle, res.Reply)
		if err != nil {
			r.logger.Error("failed to reconcile sql explanation",
				slog.Int("index", i),
				slog.String("category", string(res.Request.Category)),
				slog.Int("records_kept", len(records)),
				slog.Any("error", err))
			r.observer.ObserveReconcileFailure(res.Request.Category)
			return records
		}
		records = append(records, matched...)
	}
	return records
}

func (r *Reconciler) reconcileReply(bundle core.ExplanationBundle, reply core.Reply) ([]core.ExplanationRecord, error) {
	if len(reply.Replies) == 0 {
		return nil, errEmptyReply
	}

	var envelope struct {
		Results map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(reply.Replies[0]), &envelope); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if envelope.Results == nil {
		return nil, errors.New("reply has no results object")
	}

	category, explanations, ok, err := r.matchCategory(bundle, envelope.Results)
	if err != nil || !ok {
		return nil, err
	}
	r.logger.Debug("reconciling reply", slog.String("category", string(category)))

	switch category {
	case core.CategoryFilter:
		return []core.ExplanationRecord{
			core.NewRecord(category, *bundle.Filter, extractText(explanations)),
		}, nil
	case core.CategorySelectItems:
		return reconcileSelectItems(bundle.SelectItems, explanations)
	default:
		list, ok := explanations.([]any)
		if !ok {
			return nil, fmt.Errorf("%s explanations: expected a list, got %T", category, explanations)
		}
		return zipRecords(category, bundle.Units(category), list), nil
	}
}

// matchCategory returns the first category, in fixed order, that is non-empty
// in both the bundle and the reply.
func (r *Reconciler) matchCategory(bundle core.ExplanationBundle, results map[string]json.RawMessage) (core.Category, any, bool, error) {
	var (
		found        core.Category
		explanations any
		ok           bool
	)
	for _, category := range core.Categories {
		raw, present := results[string(category)]
		if !present || !bundle.Has(category) {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", nil, false, fmt.Errorf("decode %s explanations: %w", category, err)
		}
		if !truthy(value) {
			continue
		}
		if ok {
			r.logger.Warn("reply addresses more than one category; keeping the first",
				slog.String("kept", string(found)),
				slog.String("ignored", string(category)))
			break
		}
		found, explanations, ok = category, value, true
	}
	return found, explanations, ok, nil
}

func reconcileSelectItems(units core.SelectUnits, explanations any) ([]core.ExplanationRecord, error) {
	groups, ok := explanations.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("selectItems explanations: expected an object, got %T", explanations)
	}
	with, err := listAt(groups, core.WithOperationKey)
	if err != nil {
		return nil, err
	}
	without, err := listAt(groups, core.WithoutOperationKey)
	if err != nil {
		return nil, err
	}

	records := zipRecords(core.CategorySelectItems, units.WithOperation, with)
	return append(records, zipRecords(core.CategorySelectItems, units.WithoutOperation, without)...), nil
}

func listAt(groups map[string]any, key string) ([]any, error) {
	v, present := groups[key]
	if !present || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("selectItems.%s: expected a list, got %T", key, v)
	}
	return list, nil
}

// zipRecords pairs units and explanations positionally; surplus on either
// side is dropped.
func zipRecords(category core.Category, units []core.ExplanationUnit, explanations []any) []core.ExplanationRecord {
	n := min(len(units), len(explanations))
	records := make([]core.ExplanationRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, core.NewRecord(category, units[i], extractText(explanations[i])))
	}
	return records
}

// extractText reduces an explanation value to a string: a list yields its
// first element, a string itself, anything else "".
func extractText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) > 0 {
			return extractText(val[0])
		}
	}
	return ""
}

// truthy mirrors JSON "non-empty": null, "", [], {}, false and 0 are empty.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}
