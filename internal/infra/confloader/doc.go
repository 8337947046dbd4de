// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags, via LoadMap)
//  2. Environment variables (EMBEDHTTP_SECTION_KEY)
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// Reload rebuilds the whole stack from scratch so a file edit can remove
// keys as well as change them. Watcher reports edits of the file.
package confloader
