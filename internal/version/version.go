package version

import "fmt"

// Заполняются через -ldflags "-X github.com/vladislavdragonenkov/urbanfood/internal/version.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("urbanfood version=%s commit=%s date=%s", version, commit, date)
}
