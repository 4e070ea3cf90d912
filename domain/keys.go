package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// clusteringLayout is fixed width so lexical order of encoded values equals time order.
const clusteringLayout = "2006-01-02T15:04:05.000000000Z"

const (
	minYear = 1
	maxYear = 9999
)

// ClusteringKey encodes an event time as a row key.
func ClusteringKey(t time.Time) string {
	return t.UTC().Format(clusteringLayout)
}

// ParseClusteringKey decodes a row key produced by ClusteringKey.
func ParseClusteringKey(s string) (time.Time, error) {
	t, err := time.Parse(clusteringLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("clustering key %q: %w", s, err)
	}
	return t, nil
}

// ReferencePartition encodes the (reference, year) partition of the by-reference view.
func ReferencePartition(reference string, year int) string {
	return reference + ":" + fmt.Sprintf("%04d", year)
}

// ParseReferencePartition splits a partition produced by ReferencePartition.
// The year is always the last four digits so the reference may contain ':'.
func ParseReferencePartition(partition string) (string, int, error) {
	i := strings.LastIndexByte(partition, ':')
	if i < 0 || len(partition)-i-1 != 4 {
		return "", 0, fmt.Errorf("reference partition %q: missing year", partition)
	}
	year, err := strconv.Atoi(partition[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("reference partition %q: %w", partition, err)
	}
	return partition[:i], year, nil
}

// keyPartProblem reports why value cannot be a key component, or "" when it can.
func keyPartProblem(value string) string {
	if strings.TrimSpace(value) == "" {
		return "is empty"
	}
	for _, r := range value {
		switch {
		case r == '/', r == '\\', r == '#', r == '?':
			return fmt.Sprintf("contains forbidden character %q", r)
		case r < 0x20, r >= 0x7f && r <= 0x9f:
			return "contains a control character"
		}
	}
	return ""
}

func validateKeyPart(field, value string) error {
	if problem := keyPartProblem(value); problem != "" {
		return invalidEvent(field, problem)
	}
	return nil
}

func yearInRange(year int) bool {
	return year >= minYear && year <= maxYear
}

func validateYear(year int) error {
	if !yearInRange(year) {
		return fmt.Errorf("%w: year %d out of range %d..%d", ErrInvalidKey, year, minYear, maxYear)
	}
	return nil
}

// validateInstant rejects a time whose clustering value would not be fixed width.
func validateInstant(field string, t time.Time) error {
	if y := t.UTC().Year(); !yearInRange(y) {
		return fmt.Errorf("%w: %s year %d out of range %d..%d", ErrInvalidKey, field, y, minYear, maxYear)
	}
	return nil
}

// validateQueryKey rejects a natural key a lookup cannot address.
func validateQueryKey(field, value string) error {
	if problem := keyPartProblem(value); problem != "" {
		return fmt.Errorf("%w: %s %s", ErrInvalidKey, field, problem)
	}
	return nil
}
