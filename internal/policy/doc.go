// Package policy is the read-only boundary between the analysis engine and
// the loaded security policy. The engine only reads the policy facts used for
// requirement checks; check modules use the enumeration queries.
//
// Open loads a YAML fact sheet describing a policy together with an optional
// file_contexts file.
package policy
