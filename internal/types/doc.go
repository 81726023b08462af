// Package types holds the evidence model shared by the engine, check modules
// and reporters: severities, proofs, items, results, the output format
// bitmask and the error values every layer wraps.
package types
