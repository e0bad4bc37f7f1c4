package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownSectionKeys maps each config section to its valid keys.
var knownSectionKeys = map[string][]string{
	"server": {
		"app_url", "cookie_secure", "listen_addr", "max_upload_size",
		"request_timeout", "shutdown_timeout",
	},
	"google": {
		"auth_url", "client_id", "client_secret", "endpoint", "redirect_uri", "token_url",
	},
	"sessions": {"backend", "db_path", "prune_interval", "ttl"},
	"logging":  {"log_format", "log_level"},
}

// knownSectionsList is the sorted list of section names for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownSectionsList = func() []string {
	keys := make([]string, 0, len(knownSectionKeys))
	for k := range knownSectionKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	seen := make(map[string]bool)

	for _, key := range undecoded {
		err := buildKeyError(key)
		if err == nil || seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// buildKeyError creates a descriptive error for an unknown key, suggesting
// the closest known section or key.
func buildKeyError(key toml.Key) error {
	section := key[0]

	keys, ok := knownSectionKeys[section]
	if !ok {
		if suggestion := closestMatch(section, knownSectionsList); suggestion != "" {
			return fmt.Errorf("unknown config key %q: did you mean %q?", section, suggestion)
		}

		return fmt.Errorf("unknown config key %q", section)
	}

	if len(key) < 2 {
		return nil
	}

	field := key[1]

	if suggestion := closestMatch(field, keys); suggestion != "" {
		return fmt.Errorf("unknown config key %q in [%s]: did you mean %q?", field, section, suggestion)
	}

	return fmt.Errorf("unknown config key %q in [%s]", field, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
