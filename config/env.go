package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Keys read from the env file.
const (
	KeyURLs           = "URLS"
	KeyURL            = "URL"
	KeyDriverLocation = "DRIVER_LOCATION"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses key as a Go duration ("2s", "150ms").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// LoadEnvFile reads key/value pairs from path. A missing file yields an
// empty map so the process environment alone can supply the targets.
// Values already present in the process environment win over the file.
func LoadEnvFile(path string) (map[string]string, error) {
	values := map[string]string{}
	if path != "" {
		read, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %q: %w", path, err)
		}
		for k, v := range read {
			values[k] = v
		}
	}
	for _, key := range []string{KeyURLs, KeyURL, KeyDriverLocation} {
		if value, ok := EnvString(key); ok {
			values[key] = value
		}
	}
	return values, nil
}

// TargetsFromValues picks the URL list out of env values. URLS takes
// precedence over URL; URLS is split on whitespace since map URLs may
// legitimately contain commas.
func TargetsFromValues(values map[string]string) ([]string, error) {
	raw, ok := values[KeyURLs]
	if !ok || strings.TrimSpace(raw) == "" {
		raw = values[KeyURL]
	}
	targets := CleanTargets(strings.Fields(raw))
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	return targets, nil
}
