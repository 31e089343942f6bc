package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/headhuntertrace/headhunter/internal/config"
)

const memoryDSN = ":memory:"

// libsqlDSN turns the store config into a go-libsql DSN. A URL (remote
// libsql or Turso) wins over a path and gets the auth token appended. Plain
// paths become file: DSNs and their parent directory is created.
func libsqlDSN(cfg config.StoreConfig) (string, error) {
	if remote := strings.TrimSpace(cfg.URL); remote != "" {
		return withAuthToken(remote, strings.TrimSpace(cfg.AuthToken))
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == memoryDSN, strings.HasPrefix(path, "libsql:"):
		return path, nil
	case strings.HasPrefix(path, "file:"):
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid store path: %w", err)
		}
		local := u.Path
		if local == "" {
			local = u.Opaque
		}
		if err := makeParentDir(strings.TrimPrefix(local, "//")); err != nil {
			return "", err
		}
		return path, nil
	default:
		if err := makeParentDir(path); err != nil {
			return "", err
		}
		return "file:" + filepath.Clean(path), nil
	}
}

func withAuthToken(dsn, token string) (string, error) {
	if token == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	q := u.Query()
	if q.Get("authToken") != "" {
		return dsn, nil
	}
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func makeParentDir(path string) error {
	if path == "" || path == memoryDSN {
		return nil
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- shared data directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
