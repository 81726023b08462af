// Package sechecker provides the command-line interface for sechecker. It
// configures subcommands (run, modules, last, history), resolves flags
// against the local and global config files, and executes the selected
// command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/sechecker/sechecker/cmd/sechecker"
//	func main() { sechecker.Execute() }
package sechecker
