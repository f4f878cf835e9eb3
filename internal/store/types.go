package store

import "time"

// Receipt is the immutable record of one completed build+install.
type Receipt struct {
	Name        string
	Version     string
	Forge       string
	Owner       string
	Repo        string
	Rev         string
	SrcHash     string
	VendorHash  string
	BuiltAt     time.Time
	StorePath   string
	// StoreHash is the tree hash of the installed store directory, used by
	// `pinbuild verify` to detect drift after installation.
	StoreHash   string
	Binaries    []string
	Description string
	License     string
}

// Build event kinds.
const (
	EventSuccess = "success"
	EventFailure = "failure"
	EventRemoved = "removed"
)

// BuildEvent records one build attempt or removal for audit history.
type BuildEvent struct {
	ID        int64
	Name      string
	Version   string
	Kind      string
	Detail    string
	Timestamp time.Time
}
