// Package file provides filesystem-backed adapters.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.ragline/config.toml
//   - PromptStore: user-editable prompt templates at ~/.ragline/prompts
package file
