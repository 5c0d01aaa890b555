// Package config loads the healthd configuration.
//
// Load reads .env files with godotenv, decodes the YAML file over the
// defaults, expands ${VAR} references in string values, applies `env`
// struct tag overrides and validates the result. Environment variables
// always win over the file.
//
// Expansion is strict: a ${VAR} reference to an unset variable is an error.
// $VAR is expanded leniently and $$ emits a literal dollar sign.
//
// .env files are read in this order, earlier values winning:
//
//  1. the file named by ENV_FILE, when set (and nothing else)
//  2. .env.local
//  3. .env
package config
