package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays cfg from environment variables, loading a .env file from
// the working directory first if one exists. Missing .env is not an error.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("LANPAN_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("LANPAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("LANPAN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("LANPAN_CHUNK_CAP_MIB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.ChunkCap = n << 20
		}
	}
	if v := os.Getenv("LANPAN_COOKIE"); v != "" {
		cfg.Cookie = v
	}
	if v := os.Getenv("LANPAN_AUTO_PASSWORD"); v != "" {
		cfg.AutoPassword = v
	}
	if v := os.Getenv("LANPAN_AUTO_DESCRIPTION"); v != "" {
		cfg.AutoDescription = v
	}
}
