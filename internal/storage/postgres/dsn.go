package postgres

import (
	"fmt"

	"github.com/asso-lecture/asso-backend/config"
)

// DSN returns cfg.DSN when set, otherwise a keyword/value connection string
// understood by both pgx and lib/pq.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode,
	)
}
