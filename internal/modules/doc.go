// Package modules holds the built-in policy checks. Each check is an
// engine.Module whose init callback allocates an empty Result, whose run
// callback fills it from the shared policy, and whose get_result callback
// hands it back to the library. domain_and_file_type reads the results of
// find_domains and find_file_types through the callback environment.
package modules
