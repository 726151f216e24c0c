package archive

import "codeberg.org/mutker/powermon/internal/errors"

const defaultDirPerm = 0o755

type Config struct {
	DBPath  string
	Enabled bool
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if the archive is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}
