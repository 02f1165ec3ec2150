package ipc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	TimestampHeader = "X-Brunosync-Timestamp"
	SignatureHeader = "X-Brunosync-Signature"

	// MaxSkew bounds how old a signed request may be.
	MaxSkew = time.Minute
)

var (
	ErrRequestExpired    = errors.New("request expired")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Sign stamps r with the current time and an HMAC of its method, path, query and timestamp under key. The key
// itself never travels with the request.
func Sign(r *http.Request, key string, now time.Time) {
	ts := strconv.FormatInt(now.UTC().Unix(), 10)
	r.Header.Set(TimestampHeader, ts)
	r.Header.Set(SignatureHeader, hex.EncodeToString(sign(prepareSigData(r.Method, r.URL, ts), key)))
}

// Verify checks a request signed by Sign.
func Verify(r *http.Request, key string, now time.Time) error {
	ts := r.Header.Get(TimestampHeader)
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid or missing timestamp: %w", err)
	}
	if age := now.UTC().Sub(time.Unix(sec, 0)); age > MaxSkew || age < -MaxSkew {
		return ErrRequestExpired
	}

	providedSig := r.Header.Get(SignatureHeader)
	if providedSig == "" {
		return fmt.Errorf("missing signature")
	}
	providedSigBytes, err := hex.DecodeString(providedSig)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}

	if !hmac.Equal(sign(prepareSigData(r.Method, r.URL, ts), key), providedSigBytes) {
		return ErrSignatureMismatch
	}
	return nil
}

func prepareSigData(method string, u *url.URL, ts string) string {
	data := &strings.Builder{}
	data.WriteString(method + "\n")
	data.WriteString(u.EscapedPath() + "\n")

	// sorted for a deterministic signature on both ends
	values := u.Query()
	for k := range slices.Values(slices.Sorted(maps.Keys(values))) {
		for v := range slices.Values(values[k]) {
			data.WriteString(fmt.Sprintf("%s=%s\n", k, v))
		}
	}
	data.WriteString(ts)
	return data.String()
}

func sign(data, secretKey string) []byte {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
