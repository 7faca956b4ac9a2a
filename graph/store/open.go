package store

import "fmt"

// Open returns the store selected by driver: "memory", "sqlite" or "mysql".
// dsn is the SQLite path or MySQL DSN and is ignored for "memory".
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemStore(), nil
	case "sqlite":
		if dsn == "" {
			dsn = ":memory:"
		}
		s, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("mysql store requires a DSN")
		}
		s, err := NewMySQLStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
