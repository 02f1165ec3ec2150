package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/ipc"
)

// Auth holds the key generated for one daemon run. Anyone who can read the key file may talk to the daemon.
type Auth struct {
	key string
	now func() time.Time
}

// New generates a fresh 40 char session key.
func New() *Auth {
	secretBytes := make([]byte, 30)
	_, _ = rand.Read(secretBytes)
	return &Auth{
		key: base64.StdEncoding.EncodeToString(secretBytes)[:40],
		now: time.Now,
	}
}

func (auth *Auth) Key() string {
	return auth.key
}

// Guard rejects requests that are not signed with the session key.
func (auth *Auth) Guard(logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := ipc.Verify(r, auth.key, auth.now())
		if err != nil {
			logger.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Warn("Rejected unsigned request")
			http.Error(w, "invalid request signature", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteKeyFile stores the session key at path, readable by the owner only.
func (auth *Auth) WriteKeyFile(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create key file directory: %w", err)
	}
	err = os.WriteFile(path, []byte(auth.key+"\n"), 0o600)
	if err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
