// Package engine hosts check modules over a loaded policy. A Library owns
// the modules, decides which of them are eligible to run from their
// requirements and dependencies, orders them by dependency and drives each
// through init and run, isolating failures per module. Rendering results is
// left to the report package.
package engine
