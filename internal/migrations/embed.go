// Package migrations содержит SQL миграции схемы, встроенные в бинарник
package migrations

import "embed"

// FS встроенные goose миграции PostgreSQL
//
//go:embed sql/*.sql
var FS embed.FS

// Dir каталог миграций внутри FS
const Dir = "sql"
