// Package all registers every SQL source kind with the source registry.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "csvexplore/internal/source/mssql"
	_ "csvexplore/internal/source/postgres"
	_ "csvexplore/internal/source/sqlite"
)
