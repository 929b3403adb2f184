// Package core defines the shared language of sqlexplain.
//
// This package contains:
//   - Analyzer input types (AnalysisFragment, FilterNode, RelationNode, SelectItem)
//   - Explanation types (ExplanationUnit, ExplanationBundle, ExplanationRequest, ExplanationRecord)
//   - The Generator interface implemented by language-model providers
//
// Filter and relation trees are closed sum types: each implementation carries
// an unexported marker method, and consumers switch over the concrete types.
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
