package version

import (
	"fmt"
	"runtime"
)

// Set at build time with
// -ldflags "-X github.com/NeuralTrust/SecurityProxy/pkg/version.Version=... -X ...Commit=... -X ...BuildDate=..."
var (
	Version   = "0.4.0-dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const ServiceName = "security-proxy"

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	return Info{
		Service:   ServiceName,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String is the one-line form logged at startup.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, built %s, %s %s)", i.Service, i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
