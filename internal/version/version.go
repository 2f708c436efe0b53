package version

// Name is the binary name shown in --version output and archive manifests.
const Name = "today-todo"

var (
	// Version is set via ldflags at build time. Fallback to dev.
	Version = "dev"
	// Commit is the VCS revision, set via ldflags.
	Commit = ""
	// Date is the build timestamp in RFC3339, set via ldflags.
	Date = ""
)

// String returns "<version>[+commit] [(date)]".
func String() string {
	s := Version
	if Commit != "" {
		s += "+" + Commit
	}
	if Date != "" {
		s += " (" + Date + ")"
	}
	return s
}

// Full prefixes String with the binary name.
func Full() string { return Name + " " + String() }
