package version

import "github.com/Masterminds/semver/v3"

const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

// Version is the semantic version of the client.
const Version = "1.0.0"

// VersionNumber is the numeric project version, bumped together with Version.
const VersionNumber float64 = 1.0

// VersionString is the human-readable version string of the client.
const VersionString = "para-client-go " + Version

// Build metadata, overridden at build time via -ldflags.
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// VersionBytes returns VersionString as a byte sequence. Each call returns a new copy.
func VersionBytes() []byte {
	return []byte(VersionString)
}

// Semver returns the parsed client version.
func Semver() *semver.Version {
	return semver.MustParse(Version)
}

// Compare compares the client version with other. It returns -1, 0 or 1 like
// semver.Version.Compare, with the client version on the left.
func Compare(other string) (int, error) {
	v, err := semver.NewVersion(other)
	if err != nil {
		return 0, err
	}
	return Semver().Compare(v), nil
}

// UserAgent is the User-Agent header value sent with every request.
func UserAgent() string {
	return "para-client-go/" + Version
}

