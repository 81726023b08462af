// Package core provides a small, stable facade over sechecker's internal
// engine for external integrations. It re-exports a narrow API surface so
// third-party tools can depend on a stable import path without importing
// internal packages.
//
// Example:
//
//	views, err := core.Analyze(core.Config{Policy: "policy.yaml", FileContexts: "file_contexts"})
//	if err != nil { /* handle */ }
//	_ = core.MarshalViews(os.Stdout, views)
package core
