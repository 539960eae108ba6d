package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/whirlun/emigo-go/pkg/types"
)

// Default turn-loop and prompt-building knobs, applied by Load when the
// layered config leaves them at their zero value.
const (
	DefaultMaxTurns                 = 10
	DefaultMaxHistoryTokens         = 8000
	DefaultMinHistoryMessages       = 3
	DefaultFuzzySimilarityThreshold = 0.85
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/emigo/)
// 2. Project config (<directory>/.emigo/)
// 3. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	globalPath := GetPaths().Config
	loadConfigFile(filepath.Join(globalPath, "emigo.json"), config)
	loadConfigFile(filepath.Join(globalPath, "emigo.jsonc"), config)

	if directory != "" {
		loadConfigFile(filepath.Join(directory, ".emigo", "emigo.json"), config)
		loadConfigFile(filepath.Join(directory, ".emigo", "emigo.jsonc"), config)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	data = stripJSONComments(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// stripJSONComments removes // and /* */ comments from JSONC.
func stripJSONComments(data []byte) []byte {
	singleLine := regexp.MustCompile(`//.*$`)
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = singleLine.ReplaceAll(line, nil)
	}
	data = bytes.Join(lines, []byte("\n"))

	multiLine := regexp.MustCompile(`/\*[\s\S]*?\*/`)
	data = multiLine.ReplaceAll(data, nil)

	return data
}

// mergeConfig merges source config into target, a file/env layer at a
// time; zero values in source never overwrite a value already set by an
// earlier, lower-priority layer.
func mergeConfig(target, source *types.Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.MaxTurns != 0 {
		target.MaxTurns = source.MaxTurns
	}
	if source.MaxHistoryTokens != 0 {
		target.MaxHistoryTokens = source.MaxHistoryTokens
	}
	if source.MinHistoryMessages != 0 {
		target.MinHistoryMessages = source.MinHistoryMessages
	}
	if source.FuzzySimilarityThreshold != 0 {
		target.FuzzySimilarityThreshold = source.FuzzySimilarityThreshold
	}
	if source.Verbose {
		target.Verbose = true
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Permission != nil {
		if target.Permission == nil {
			target.Permission = make(map[string]string)
		}
		for k, v := range source.Permission {
			target.Permission[k] = v
		}
	}
}

// applyEnvOverrides applies environment variable overrides, the
// lowest-priority-to-override, highest-priority-to-apply layer.
func applyEnvOverrides(config *types.Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]types.ProviderConfig)
			}
			p := config.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("EMIGO_MODEL"); model != "" {
		config.Model = model
	}
}

// applyDefaults fills in the turn-loop knobs SPEC_FULL.md documents as
// having defaults whenever the layered config left them unset.
func applyDefaults(config *types.Config) {
	if config.MaxTurns == 0 {
		config.MaxTurns = DefaultMaxTurns
	}
	if config.MaxHistoryTokens == 0 {
		config.MaxHistoryTokens = DefaultMaxHistoryTokens
	}
	if config.MinHistoryMessages == 0 {
		config.MinHistoryMessages = DefaultMinHistoryMessages
	}
	if config.FuzzySimilarityThreshold == 0 {
		config.FuzzySimilarityThreshold = DefaultFuzzySimilarityThreshold
	}
}

// Save writes config as indented JSON to path, creating parent
// directories as needed.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
