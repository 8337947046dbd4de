// Package output renders command results for embedhttp-cli as an aligned
// table, JSON or YAML.
package output
