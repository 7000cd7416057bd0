// Package version reports what a csvclassifier binary was built from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const openAIClientModule = "github.com/sashabaranov/go-openai"

// Set with -ldflags "-X .../internal/version.Version=v1.2.0" and friends.
// Commit and BuildDate fall back to the VCS stamp Go embeds in the binary.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info describes the running binary. OpenAIClient is the go-openai version
// linked in, which decides what the completion request looks like on the wire.
type Info struct {
	Version      string `json:"version"`
	Commit       string `json:"commit,omitempty"`
	Dirty        bool   `json:"dirty,omitempty"`
	BuildDate    string `json:"build_date,omitempty"`
	OpenAIClient string `json:"openai_client,omitempty"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if build, ok := debug.ReadBuildInfo(); ok {
		info = info.withBuildInfo(build)
	}

	return info
}

// withBuildInfo fills whatever ldflags left unset from the embedded build
// information.
func (i Info) withBuildInfo(build *debug.BuildInfo) Info {
	if i.Version == "" || i.Version == "dev" {
		if v := build.Main.Version; v != "" && v != "(devel)" {
			i.Version = v
		}
	}

	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = setting.Value
			}
		case "vcs.time":
			if i.BuildDate == "" {
				i.BuildDate = setting.Value
			}
		case "vcs.modified":
			i.Dirty = setting.Value == "true"
		}
	}

	for _, dep := range build.Deps {
		if dep.Path == openAIClientModule {
			i.OpenAIClient = dep.Version
			if dep.Replace != nil {
				i.OpenAIClient = dep.Replace.Version
			}
		}
	}

	return i
}

// Short is the form cobra prints for --version: the version, then the
// abbreviated commit, then "+dirty" for a modified tree.
func Short() string {
	return Get().short()
}

func (i Info) short() string {
	s := i.Version
	if len(i.Commit) >= 7 {
		s += "-" + i.Commit[:7]
	}
	if i.Dirty {
		s += "+dirty"
	}
	return s
}

func (i Info) String() string {
	parts := []string{"csvclassifier " + i.short()}

	if i.BuildDate != "" {
		parts = append(parts, "built "+i.BuildDate)
	}
	if i.OpenAIClient != "" {
		parts = append(parts, "go-openai "+i.OpenAIClient)
	}
	parts = append(parts, fmt.Sprintf("%s %s", i.GoVersion, i.Platform))

	return strings.Join(parts, ", ")
}
