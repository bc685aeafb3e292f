// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package normalize projects heterogeneous upstream JSON into the
// canonical catalog records.
//
// The upstream APIs are reverse-engineered and not contractually
// stable, so every normalizer here is pure, deterministic, and
// total: malformed or unexpectedly-shaped input degrades to an empty
// page rather than returning an error. Fields are extracted with
// null-safe accessors; records are always fully shaped; when the same
// logical array can live in more than one location, the locations are
// checked in fixed priority order and concatenated, because some
// responses legitimately carry both a primary and a supplemental
// section.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Source identifiers attached to every normalized record.
const (
	SourceDramaBox = "dramabox"
	SourceNetShort = "netshort"
	SourceMelolo   = "melolo"
	SourceAnime    = "anime"
	SourceMovieBox = "moviebox"
)

// htmlTagPattern matches any markup tag for StripHTML. Conservative
// by intent: it removes tags only, never entity-decodes or reflows.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup tags from upstream text fields. Search
// endpoints wrap matched substrings in highlight tags; canonical text
// carries none.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// decode parses payload into a generic JSON value. Any parse failure
// yields nil, which every accessor below treats as absent.
func decode(payload []byte) map[string]interface{} {
	var v map[string]interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	return v
}

// getMap walks a path of object keys, returning nil if any step is
// missing or not an object.
func getMap(v map[string]interface{}, path ...string) map[string]interface{} {
	for _, key := range path {
		if v == nil {
			return nil
		}
		next, ok := v[key].(map[string]interface{})
		if !ok {
			return nil
		}
		v = next
	}
	return v
}

// getSlice returns the array at the final path element, or nil.
func getSlice(v map[string]interface{}, path ...string) []interface{} {
	if len(path) == 0 {
		return nil
	}
	parent := v
	if len(path) > 1 {
		parent = getMap(v, path[:len(path)-1]...)
	}
	if parent == nil {
		return nil
	}
	s, _ := parent[path[len(path)-1]].([]interface{})
	return s
}

// getString extracts a string, converting JSON numbers to their
// decimal form since several upstreams switch between the two.
func getString(v map[string]interface{}, key string) string {
	if v == nil {
		return ""
	}
	switch val := v[key].(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// firstString returns the first non-empty string among the keys.
func firstString(v map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := getString(v, key); s != "" {
			return s
		}
	}
	return ""
}

// getInt extracts an integer from a JSON number or numeric string.
func getInt(v map[string]interface{}, key string) int {
	if v == nil {
		return 0
	}
	switch val := v[key].(type) {
	case float64:
		return int(val)
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// getBool extracts a boolean; numeric 1 and "1"/"true" count as true,
// matching the upstreams' loose typing.
func getBool(v map[string]interface{}, key string) bool {
	if v == nil {
		return false
	}
	switch val := v[key].(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val == "1" || strings.EqualFold(val, "true")
	default:
		return false
	}
}

// getStrings extracts a []string, skipping non-string elements.
func getStrings(v map[string]interface{}, key string) []string {
	if v == nil {
		return nil
	}
	raw, ok := v[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// pageHints resolves hasMore and nextOffset with the shared fallback
// chain: top-level field first, then the nested data object, then
// false/0.
func pageHints(root, data map[string]interface{}) (bool, int) {
	hasMore := getBool(root, "hasMore")
	if !hasMore {
		hasMore = getBool(data, "hasMore")
	}
	nextOffset := getInt(root, "nextOffset")
	if nextOffset == 0 {
		nextOffset = getInt(data, "nextOffset")
	}
	return hasMore, nextOffset
}
