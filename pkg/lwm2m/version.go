package lwm2m

import "regexp"

var versionPattern = regexp.MustCompile(`^[0-9]\.[0-9]$`)

// Version is a LwM2M object/protocol version of shape D.D. Equality and
// hashing are purely textual.
type Version struct {
	value string
}

// DefaultVersion is the fallback version used when a lookup does not name
// one explicitly.
func DefaultVersion() Version {
	return Version{value: "1.0"}
}

// ParseVersion validates s against ^[0-9]\.[0-9]$.
func ParseVersion(s string) (Version, error) {
	if !versionPattern.MatchString(s) {
		return Version{}, &ParserError{Message: "Version is not in format DIGIT.DIGIT"}
	}
	return Version{value: s}, nil
}

func (v Version) String() string {
	return v.value
}

func (v Version) Equal(other Version) bool {
	return v.value == other.value
}
