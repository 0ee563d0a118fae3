// Package all wires every built-in relational backend into the
// relational.Open factory. It exists purely for its side effects:
//
//   - "sqlite"   (internal/relational/sqlite)
//   - "postgres" (internal/relational/postgres)
//   - "mysql"    (internal/relational/mysql)
//   - "mssql"    (internal/relational/mssql)
package all

import (
	_ "github.com/qlemen7/cineexplorer/internal/relational/mssql"
	_ "github.com/qlemen7/cineexplorer/internal/relational/mysql"
	_ "github.com/qlemen7/cineexplorer/internal/relational/postgres"
	_ "github.com/qlemen7/cineexplorer/internal/relational/sqlite"
)
