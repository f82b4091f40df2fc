// Package all registers every built-in SQL dialect.
package all

import (
	_ "dmlgen/internal/storage/mssql"
	_ "dmlgen/internal/storage/mysql"
	_ "dmlgen/internal/storage/postgres"
	_ "dmlgen/internal/storage/sqlite"
)
