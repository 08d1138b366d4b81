package config

import (
	"encoding/json"
	"os"
	"time"

	"lanpan/internal/flagx"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Timeout is in
// seconds and ChunkCap in mebibytes so hand-written config files stay
// readable; values are converted when copied into the runtime Config.
type jsonConfig struct {
	DownloadDir     *string `json:"download_dir"`
	Workers         *int    `json:"workers"`
	TimeoutSeconds  *int    `json:"timeout_seconds"`
	ChunkCapMiB     *int64  `json:"chunk_cap_mib"`
	Cookie          *string `json:"cookie"`
	AutoPassword    *string `json:"auto_password"`
	AutoDescription *string `json:"auto_description"`
}

// parseJSON overlays cfg with values from the JSON file resolved via
// flagx.ConfigFilePath. Absent file means no overlay; unknown fields are
// ignored. Only fields present in the file override defaults.
func parseJSON(cfg *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DownloadDir != nil {
		cfg.DownloadDir = *jc.DownloadDir
	}
	if jc.Workers != nil {
		cfg.Workers = *jc.Workers
	}
	if jc.TimeoutSeconds != nil {
		cfg.Timeout = time.Duration(*jc.TimeoutSeconds) * time.Second
	}
	if jc.ChunkCapMiB != nil {
		cfg.ChunkCap = *jc.ChunkCapMiB << 20
	}
	if jc.Cookie != nil {
		cfg.Cookie = *jc.Cookie
	}
	if jc.AutoPassword != nil {
		cfg.AutoPassword = *jc.AutoPassword
	}
	if jc.AutoDescription != nil {
		cfg.AutoDescription = *jc.AutoDescription
	}
}
