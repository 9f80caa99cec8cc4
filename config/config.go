package config

import "os"

const (
	defaultAddr   = ":8088"
	defaultDBPath = "yatube.db"
	defaultSecret = "dev-secret-change-me"
)

// Addr is the listen address for the HTTP server.
func Addr() string {
	return envOr("YATUBE_ADDR", defaultAddr)
}

// DBPath is the sqlite database file path.
func DBPath() string {
	return envOr("YATUBE_DB", defaultDBPath)
}

// JWTSecret is the HS256 signing key for auth tokens.
func JWTSecret() []byte {
	return []byte(envOr("YATUBE_JWT_SECRET", defaultSecret))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
