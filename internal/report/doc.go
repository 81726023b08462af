// Package report renders module results: the per-module text report driven
// by the output format bitmask, the disposition summary table, JSON and
// SARIF exports, and the fail-on threshold used for exit codes.
package report
