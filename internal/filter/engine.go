// Package filter decides which scanned payloads are forwarded to a chat.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"codescanner/internal/model"
)

// Match checks whether a payload passes the given set of filters.
// If no filters are provided, the payload always passes.
// Include filters use OR logic (at least one must match).
// Exclude filters use AND logic (none must match).
func Match(payload string, filters []model.Filter) bool {
	if len(filters) == 0 {
		return true
	}

	text := strings.ToLower(payload)
	hasIncludes := false
	anyIncludeMatched := false

	for _, f := range filters {
		switch f.Kind {
		case model.FilterInclude, model.FilterIncludeRe:
			hasIncludes = true
			if matchesFilter(text, f) {
				anyIncludeMatched = true
			}
		case model.FilterExclude, model.FilterExcludeRe:
			if matchesFilter(text, f) {
				return false
			}
		}
	}

	return !hasIncludes || anyIncludeMatched
}

func matchesFilter(text string, f model.Filter) bool {
	switch f.Kind {
	case model.FilterInclude, model.FilterExclude:
		return strings.Contains(text, strings.ToLower(f.Value))
	case model.FilterIncludeRe, model.FilterExcludeRe:
		re, err := regexp.Compile("(?i)" + f.Value)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
