package ipc

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoKey = errors.New("no session key")

// ReadKey loads the session key the daemon wrote for its current run.
func ReadKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNoKey)
		}
		return "", fmt.Errorf("read key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoKey)
	}
	return key, nil
}
