// Package parse holds the legacy name-prefix group heuristic. It predates
// group names being stored on machine settings and survives only as a
// backfill utility for rows imported without one. It is never consulted by
// the aggregation path.
package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var trailingIndexRe = regexp.MustCompile(`\s+\d+\s*$`)

// groupByPrefix maps a machine-name prefix to the group it historically
// belonged to. The mapping is lossy: several prefixes were later split
// across groups, which is why stored group names are the source of truth.
var groupByPrefix = map[string]string{
	"Model":       "PIS",
	"PIS Casting": "PIS",
	"Side piece":  "PIS",
	"NC Lathe":    "PIS",
	"3G Laser":    "3G",
	"Turning":     "SECTOR",
	"Machining":   "SECTOR",
	"Letter":      "SIDE MOLD",
	"Laser":       "BLADE",
}

// InferGroup guesses a machine's group from its name prefix. Use only to
// backfill settings rows that predate explicit group storage.
func InferGroup(machineName string) (string, error) {
	name := strings.TrimSpace(machineName)
	prefix := strings.TrimSpace(trailingIndexRe.ReplaceAllString(name, ""))
	if group, ok := groupByPrefix[prefix]; ok {
		return group, nil
	}
	return "", fmt.Errorf("no group known for machine name %q", machineName)
}
