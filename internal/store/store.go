// Package store keeps the local state of the oversee CLI: global config, the
// signed-in session and the TUI's last position.
package store

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger().WithField("package", "store")

type Store struct {
	Dir string
}

// Open returns the store rooted at ConfigDir.
func Open() (Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Store{}, err
	}
	return Store{Dir: dir}, nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return os.ErrInvalid
	}
	return os.MkdirAll(s.Dir, 0o755)
}
