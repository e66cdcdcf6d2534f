package stores

import "fmt"

// NewTraceStore builds a trace store by backend name: "sqlite" with a file
// path or "postgres" with a DSN.
func NewTraceStore(dbType, dsn string) (Trace_Store, error) {
	switch dbType {
	case "sqlite", "":
		if dsn == "" {
			dsn = "traces.db"
		}
		return NewSQLiteTraceStore(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres trace store requires a DSN")
		}
		return NewPostgresTraceStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported trace store type: %s", dbType)
	}
}
