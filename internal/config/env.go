package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// envFiles are loaded in order; a variable set by an earlier file or by the
// process environment is never overwritten.
var envFiles = []string{".env.local", ".env"}

func loadDotEnv(root string) error {
	for _, name := range envFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.ConfigError("load env file").
				WithContext(errors.ContextFile, path).
				WithCause(err).
				Build()
		}
	}
	return nil
}
