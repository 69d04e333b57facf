package bundle

import (
	"fmt"
	"strings"
)

// Version identifies the bundle format revision.
type Version string

const (
	VersionB1 Version = "b1"
	VersionB2 Version = "b2"
	Version1  Version = "1"
)

var knownVersions = []Version{VersionB1, VersionB2, Version1}

// ParseVersion accepts "b1", "b2" or "1" (surrounding space and case ignored).
func ParseVersion(s string) (Version, error) {
	x := Version(strings.ToLower(strings.TrimSpace(s)))
	if x.Valid() {
		return x, nil
	}
	return "", fmt.Errorf("unknown bundle version %q (valid versions are b1|b2|1)", s)
}

// Valid reports whether v is one of the known format revisions.
func (v Version) Valid() bool {
	for _, k := range knownVersions {
		if v == k {
			return true
		}
	}
	return false
}

func (v Version) String() string { return string(v) }
