// Package config holds the runtime configuration for biblioscan.
//
// Configuration is assembled from three layers, later layers winning:
// built-in defaults, the optional .biblioscan YAML file (current
// directory, then home directory, then the XDG config directory), and
// CLI flags. Site-specific sections in the file let one library host
// carry its own cookie, headers, or depth without affecting others.
//
// Design decision: The Config struct is populated once during command
// startup and passed down by value injection, never read from global
// state, so tests can build arbitrary configurations without touching
// the filesystem.
package config
