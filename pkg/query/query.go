// Copyright (c) 2026 XStream Media. All rights reserved.

// Package query provides fault-tolerant parsing helpers for URL query parameters.
package query

import (
	"strconv"
	"strings"
)

// Bool parses a query value as a tri-state boolean.
// It returns nil when the value is empty or unrecognised.
func Bool(val string) *bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

// IntSlice parses a slice of string values from URL query parameters
// into a slice of integers. Invalid entries are ignored safely.
func IntSlice(vals []string) []int {
	var res []int
	for _, v := range vals {
		if i, err := strconv.Atoi(v); err == nil {
			res = append(res, i)
		}
	}
	return res
}

// StringSlice parses a single comma-separated query string
// into a trimmed slice of strings.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		clean := strings.TrimSpace(v)
		if clean != "" {
			res = append(res, clean)
		}
	}
	return res
}
