// Package explain turns SQL analysis fragments into natural-language
// explanations.
//
// A run has five stages:
//
//  1. Flatten: filter trees, join trees, key lists and select items become
//     ordered, id-tagged units.
//  2. Compose: one bundle of units per statement.
//  3. Build: one request per non-empty category, in a fixed order.
//  4. Dispatch: requests are sent to a core.Generator concurrently.
//  5. Reconcile: each reply is matched back onto its category's units by
//     position.
//
// Explainer wires the stages together; each stage is also exported for
// callers that need only part of the pipeline.
package explain
