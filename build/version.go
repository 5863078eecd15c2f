package build

// CurrentCommit is the git commit suffix, set via ldflags.
var CurrentCommit string

const BuildVersion = "1.0.0"

func UserVersion() string {
	return BuildVersion + CurrentCommit
}
