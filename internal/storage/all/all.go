// Package all registers every storage backend with the factory. Commands
// blank-import it so backend selection stays a runtime config concern.
package all

import (
	_ "baac/internal/storage/mssql"
	_ "baac/internal/storage/postgres"
	_ "baac/internal/storage/sqlite"
)
