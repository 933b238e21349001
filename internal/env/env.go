package env

import (
	"runtime"
	"sort"
	"strings"

	"github.com/baaaaaaaka/rproxy/internal/config"
)

// ProxyVars are the variables set for a launched process. All receive the
// same URL whatever the protocol.
var ProxyVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY"}

func Build(cfg config.ProxyConfig) map[string]string {
	proxyURL := cfg.URL()
	out := make(map[string]string, len(ProxyVars))
	for _, k := range ProxyVars {
		out[k] = proxyURL
	}
	return out
}

// Overlay returns base with every key in overlay replaced. Untouched entries
// keep their order; overlay entries follow, sorted by key.
func Overlay(base []string, overlay map[string]string) []string {
	return overlayWith(base, overlay, runtime.GOOS == "windows")
}

// WithProxy is Overlay(base, Build(cfg)).
func WithProxy(base []string, cfg config.ProxyConfig) []string {
	return Overlay(base, Build(cfg))
}

// Lookup returns the last value of key in env, like the C runtime does.
func Lookup(env []string, key string) (string, bool) {
	return lookupWith(env, key, runtime.GOOS == "windows")
}

func overlayWith(base []string, overlay map[string]string, foldCase bool) []string {
	replaced := make(map[string]bool, len(overlay))
	for k := range overlay {
		replaced[normKey(k, foldCase)] = true
	}

	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if ok && replaced[normKey(k, foldCase)] {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overlay[k])
	}
	return out
}

func lookupWith(env []string, key string, foldCase bool) (string, bool) {
	key = normKey(key, foldCase)
	val, found := "", false
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if normKey(k, foldCase) == key {
			val, found = v, true
		}
	}
	return val, found
}

func normKey(k string, foldCase bool) string {
	if foldCase {
		return strings.ToUpper(k)
	}
	return k
}
