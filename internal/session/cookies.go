// Package session loads the browser credentials attached to every request
// within one validation run.
package session

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consulted by FromEnv.
const (
	EnvCookieHeader = "COOKIE_HEADER"
	EnvCookiesJSON  = "COOKIES_JSON"
)

// Cookies is an ordered-insensitive set of cookie name/value pairs.
type Cookies map[string]string

// LoadDotenv loads a .env file into the process environment if one exists.
// Missing files are fine; the env vars simply stay unset.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ParseCookieHeader converts "k1=v1; k2=v2; k3=v3" into a Cookies map.
// Pairs without "=" and empty keys are skipped.
func ParseCookieHeader(header string) Cookies {
	out := Cookies{}
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// FromEnv builds the cookie set from COOKIE_HEADER and COOKIES_JSON.
// Both may be set; JSON keys override header keys. Malformed JSON is ignored
// rather than failing the run.
func FromEnv() Cookies {
	cookies := Cookies{}
	if header := strings.TrimSpace(os.Getenv(EnvCookieHeader)); header != "" {
		cookies.Merge(ParseCookieHeader(header))
	}
	if raw := strings.TrimSpace(os.Getenv(EnvCookiesJSON)); raw != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			for k, v := range obj {
				if s, ok := v.(string); ok {
					cookies[k] = s
				}
			}
		}
	}
	return cookies
}

// Merge copies every pair from other into c, overriding existing keys.
func (c Cookies) Merge(other Cookies) {
	for k, v := range other {
		c[k] = v
	}
}

// Header renders the set back into Cookie-header form with sorted keys so
// output is deterministic.
func (c Cookies) Header() string {
	if len(c) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+c[k])
	}
	return strings.Join(pairs, "; ")
}
