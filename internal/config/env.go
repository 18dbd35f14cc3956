package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; earlier files win because godotenv never overrides
// variables that are already set.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads KEY=VALUE pairs from .env/.env.local when present. Existing process
// environment variables are not overwritten.
func loadEnvFiles() error {
	for _, name := range envFiles {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return err
		}
	}
	return nil
}
