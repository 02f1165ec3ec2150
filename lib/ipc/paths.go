package ipc

import (
	"os"
	"path/filepath"
)

const (
	socketFile  = "brunosync.sock"
	keyFile     = "session.key"
	journalFile = "journal.jsonl"
	prefsFile   = "preferences.json"
)

// DefaultDataDir is where the daemon keeps its socket, session key, journal and preferences.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "brunosync")
}

func SocketPath(dataDir string) string {
	return filepath.Join(dataDir, socketFile)
}

func KeyPath(dataDir string) string {
	return filepath.Join(dataDir, keyFile)
}

func JournalPath(dataDir string) string {
	return filepath.Join(dataDir, journalFile)
}

func PreferencesPath(dataDir string) string {
	return filepath.Join(dataDir, prefsFile)
}
