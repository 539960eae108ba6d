// Package config loads and layers the orchestrator/worker's configuration.
//
// Load reads a global file, then a project file, then environment
// variables, in ascending priority, and fills in the turn-loop defaults
// (MaxTurns, MaxHistoryTokens, MinHistoryMessages,
// FuzzySimilarityThreshold) for anything still left unset.
//
// # Sources
//
//  1. Global config: $XDG_CONFIG_HOME/emigo/emigo.json(c)
//  2. Project config: <directory>/.emigo/emigo.json(c)
//  3. Environment variables: ANTHROPIC_API_KEY/OPENAI_API_KEY (provider
//     API keys, only filling a key a file left blank) and EMIGO_MODEL
//     (overrides the resolved model outright).
//
// Both .json and .jsonc (JSON with // and /* */ comments stripped before
// parsing) are accepted at each location.
//
// # Paths
//
// GetPaths returns the XDG Base Directory Specification paths used for
// Emigo's data, config, cache, and state directories, adapted to
// %APPDATA% on Windows.
package config
