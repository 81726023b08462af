// Package config loads sechecker configuration from local and global YAML
// files, and module profiles: the declarations that select modules and set
// their options, requirements, dependencies and output format.
package config
