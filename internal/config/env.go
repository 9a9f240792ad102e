package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		resolved, err := ExpandPath(p)
		if err != nil {
			return err
		}
		if err := godotenv.Load(resolved); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. The server-side names
// match the ones the hosted sync worker reads.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	if cfg == nil {
		return
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set("MEETDAYS_SYNC_URL", &cfg.Sync.Endpoint)
	set("MEETDAYS_SYNC_KEY", &cfg.Sync.Key)
	if v, ok := lookup("MEETDAYS_SYNC_TIMEOUT"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sync.TimeoutSeconds = n
		}
	}
	set("MEETDAYS_STORE_DRIVER", &cfg.Store.Driver)
	set("MEETDAYS_STORE_PATH", &cfg.Store.Path)
	set("MEETDAYS_LOG_LEVEL", &cfg.Log.Level)

	set("MEETDAYS_LISTEN", &cfg.Server.Listen)
	set("MEETDAYS_BACKEND", &cfg.Server.Backend)
	set("SYNC_KEY", &cfg.Server.SyncKey)
	set("GH_OWNER", &cfg.GitHub.Owner)
	set("GH_REPO", &cfg.GitHub.Repo)
	set("GH_TOKEN", &cfg.GitHub.Token)
	set("GH_API_URL", &cfg.GitHub.APIURL)
	set("GH_FILE_PATH", &cfg.Server.FilePath)
	set("GH_BRANCH", &cfg.Server.Branch)
	set("GCS_BUCKET", &cfg.GCS.Bucket)
	set("GCS_CREDENTIALS_FILE", &cfg.GCS.CredentialsFile)

	cfg.Normalize()
}
