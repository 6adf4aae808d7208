//go:build dev

package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv merges a local .env into the environment so dev runs of the
// worker can carry their RPC URLs without exporting them.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(".env")
}
