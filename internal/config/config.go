package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config настройки сервиса из окружения
type Config struct {
	Addr string
	// DatabaseDSN пустой DSN включает in-memory хранилище
	DatabaseDSN string
	// MigrateDSN строка подключения для golang-migrate (схема pgx5://)
	MigrateDSN    string
	MigrationsDir string
}

// Load читает .env, если он есть, затем окружение
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env skipped: %v", err)
	}
	return Config{
		Addr:          getenv("CAFE_ADDR", ":9091"),
		DatabaseDSN:   os.Getenv("CAFE_DATABASE_DSN"),
		MigrateDSN:    os.Getenv("CAFE_MIGRATE_DSN"),
		MigrationsDir: getenv("CAFE_MIGRATIONS_DIR", "migrations"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
