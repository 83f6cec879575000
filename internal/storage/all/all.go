// Package all registers every storage backend via side effects.
package all

import (
	_ "rorimport/internal/storage/mssql"
	_ "rorimport/internal/storage/postgres"
	_ "rorimport/internal/storage/sqlite"
)
