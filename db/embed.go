// Package db embeds the staging schema migrations
package db

import "embed"

// Migrations holds one directory per driver: pg and sqlite
//
//go:embed pg/*.sql sqlite/*.sql
var Migrations embed.FS
