// Package all wires every built-in manifest backend into the manifest
// factory. Import it for side effects only:
//
//	import _ "csvsplit/internal/manifest/all"
//
// Kinds made available: "sqlite", "postgres", "mssql", "mysql".
package all

import (
	_ "csvsplit/internal/manifest/mssql"
	_ "csvsplit/internal/manifest/mysql"
	_ "csvsplit/internal/manifest/postgres"
	_ "csvsplit/internal/manifest/sqlite"
)
