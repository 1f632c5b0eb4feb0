package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// envFiles are loaded in order; earlier files win since nothing already set
// is overridden.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles adds the variables of every env file present in dir to the
// process environment.
func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return perrors.ConfigInvalid("env", err.Error()).WithContext("path", p)
		}
	}
	return nil
}
