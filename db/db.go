package db

import "database/sql"

// Instance is the process-wide database handle, assigned at startup.
var Instance *sql.DB
