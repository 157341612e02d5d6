package bot

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultHistory = 10
	maxHistory     = 50
)

// ParseFilterValue returns the filter value of /include, /exclude, etc.
func ParseFilterValue(args string) (string, error) {
	value := strings.TrimSpace(args)
	if value == "" {
		return "", fmt.Errorf("filter value is required")
	}
	return value, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
// A leading "F" as shown in filter listings is accepted.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	field := strings.TrimPrefix(strings.Fields(s)[0], "F")
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

// ParseLimit parses the optional result count of /history.
func ParseLimit(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return defaultHistory, nil
	}
	n, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil || n < 1 || n > maxHistory {
		return 0, fmt.Errorf("count must be between 1 and %d", maxHistory)
	}
	return n, nil
}

// ParseOnOff parses "on"/"off" style switches.
func ParseOnOff(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on", "1", "true", "yes":
		return true, nil
	case "off", "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", args)
}
