// Package all registers every built-in storage backend. Import it for side
// effects:
//
//	import _ "rowpipe/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres", "mssql" and "sqlite".
// A binary that needs fewer backends can blank-import the individual
// packages instead.
package all

import (
	_ "rowpipe/internal/storage/mssql"
	_ "rowpipe/internal/storage/postgres"
	_ "rowpipe/internal/storage/sqlite"
)
