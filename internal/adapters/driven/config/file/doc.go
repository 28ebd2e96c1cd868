// Package file provides filesystem-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: settings in ~/.finrag/config.toml
//   - PromptStore: editable prompt templates in ~/.finrag/prompts
package file
