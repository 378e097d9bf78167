// Package version holds chatbox build information.
// Values are injected at build time with -ldflags "-X chatbox/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// Version is the semantic version of the application
	Version = "0.1.0"

	// GitCommit is the git commit hash when the binary was built
	GitCommit = "unknown"

	// BuildDate is the date when the binary was built
	BuildDate = "unknown"
)

// Info is the version report shown by `chatbox version` and GET /api/health.
type Info struct {
	Version    string          `json:"version"`
	GitCommit  string          `json:"gitCommit"`
	BuildDate  string          `json:"buildDate"`
	GoVersion  string          `json:"goVersion"`
	Platform   string          `json:"platform"`
	Prerelease bool            `json:"prerelease"`
	SemVer     *semver.Version `json:"-"`
}

// GetInfo parses Version and returns the full build report.
func GetInfo() (*Info, error) {
	sv, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("invalid semantic version '%s': %w", Version, err)
	}

	return &Info{
		Version:    sv.String(),
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Prerelease: sv.Prerelease() != "",
		SemVer:     sv,
	}, nil
}

// GetFormattedVersion returns a one-line version string.
func GetFormattedVersion() string {
	info, err := GetInfo()
	if err != nil {
		return fmt.Sprintf("chatbox v%s (invalid version)", Version)
	}

	parts := []string{fmt.Sprintf("chatbox v%s", info.Version)}
	if info.GitCommit != "unknown" && info.GitCommit != "" {
		shortCommit := info.GitCommit
		if len(shortCommit) > 7 {
			shortCommit = shortCommit[:7]
		}
		parts = append(parts, fmt.Sprintf("commit %s", shortCommit))
	}
	if info.BuildDate != "unknown" && info.BuildDate != "" {
		parts = append(parts, fmt.Sprintf("built %s", info.BuildDate))
	}

	return strings.Join(parts, ", ")
}

// GetDetailedVersion returns the multi-line report printed by `chatbox version --detailed`.
func GetDetailedVersion() string {
	info, err := GetInfo()
	if err != nil {
		return fmt.Sprintf("chatbox v%s (error: %v)", Version, err)
	}

	lines := []string{
		fmt.Sprintf("chatbox v%s", info.Version),
		fmt.Sprintf("Git Commit: %s", info.GitCommit),
		fmt.Sprintf("Build Date: %s", info.BuildDate),
	}
	if meta := info.SemVer.Metadata(); meta != "" {
		lines = append(lines, fmt.Sprintf("Build Metadata: %s", meta))
	}
	lines = append(lines,
		fmt.Sprintf("Go Version: %s", info.GoVersion),
		fmt.Sprintf("Platform: %s", info.Platform),
	)

	return strings.Join(lines, "\n")
}

// UserAgent is sent with every remote chat request.
func UserAgent() string {
	sv, err := semver.NewVersion(Version)
	if err != nil {
		return "chatbox"
	}
	return fmt.Sprintf("chatbox/%d.%d.%d", sv.Major(), sv.Minor(), sv.Patch())
}

// SetBuildInfo overrides build information (used for testing)
func SetBuildInfo(version, gitCommit, buildDate string) {
	Version = version
	GitCommit = gitCommit
	BuildDate = buildDate
}
