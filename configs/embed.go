// Package configs embeds the configuration templates written by `cognito init`.
//
// Precedence when loading (see internal/config Load):
//  1. Defaults (config.NewConfig)
//  2. User config (~/.config/cognito/config.yaml)
//  3. Project config (.cognito.yaml, .cognito.yml or .cognito.toml)
//  4. Environment variables (COGNITO_*)
package configs

import _ "embed"

// ProjectConfigTemplate is the commented .cognito.yaml written by `cognito init`.
// Every key it shows carries its default value.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
