package db

// Config is the connection configuration consumed by Dialect and Open.
// Values come from the DATABASE_* environment variables resolved in
// internal/config.
type Config struct {
	// Type selects the dialect: postgres in deployments, sqlite for
	// local files, mysql supported for compatibility.
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	// Pool limits; zero leaves the driver default in place.
	// Lifetimes are in seconds.
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}
