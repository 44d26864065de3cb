// Package migrations embeds the provider schema.
package migrations

import _ "embed"

// Schema is valid for both SQLite and PostgreSQL.
//
//go:embed 001_providers.sql
var Schema string
