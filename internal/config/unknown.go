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

// knownGlobalKeys are the valid flat top-level keys in the config file.
var knownGlobalKeys = map[string]bool{
	"workspace_id": true, "model_id": true,
	// Network
	"timeout": true, "connect_timeout": true, "retry_count": true,
	"backoff": true, "backoff_factor": true,
	// Paging and tasks
	"page_size": true, "status_poll_delay": true,
	// Transfers
	"upload_chunk_size": true, "batch_size": true, "allow_file_creation": true,
	"concurrency": true, "log_level": true,
	"auth": true,
}

// knownAuthKeys are the valid keys inside the [auth] table.
var knownAuthKeys = map[string]bool{
	"method": true, "email": true, "certificate": true, "private_key": true,
	"client_id": true, "redirect_uri": true, "persist_token": true,
}

var (
	knownGlobalKeysList = sortedKeys(knownGlobalKeys)
	knownAuthKeysList   = sortedKeys(knownAuthKeys)
)

// sortedKeys returns the keys of m sorted, so suggestions are deterministic
// when two candidates have the same edit distance.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		if err := buildKeyError(key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// buildKeyError creates a descriptive error for an unknown key, optionally
// suggesting the closest known key in the same table.
func buildKeyError(key toml.Key) error {
	if len(key) >= 2 && key[0] == "auth" {
		field := key[1]

		if suggestion := closestMatch(field, knownAuthKeysList); suggestion != "" {
			return fmt.Errorf("unknown key %q in [auth]; did you mean %q?", field, suggestion)
		}

		return fmt.Errorf("unknown key %q in [auth]", field)
	}

	field := key[0]
	if len(key) > 1 && knownGlobalKeys[field] {
		return fmt.Errorf("config key %q is not a table", field)
	}

	if suggestion := closestMatch(field, knownGlobalKeysList); suggestion != "" {
		return fmt.Errorf("unknown config key %q; did you mean %q?", field, suggestion)
	}

	return fmt.Errorf("unknown config key %q", field)
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

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
