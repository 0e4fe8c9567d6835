package sql

import _ "embed"

// Schema creates the tables used by the SQLite backend.
//
//go:embed schema.sql
var Schema string
