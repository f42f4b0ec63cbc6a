// Package db ships the schema migrations inside the binaries that need them.
package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"

// Migrations returns the embedded golang-migrate files, named
// <version>_<title>.<up|down>.sql.
func Migrations() fs.FS {
	return migrations
}
