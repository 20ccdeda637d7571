package models

// EntryKind tags what a listed remote entry is
type EntryKind string

const (
	// KindContainer is a directory-like node that has children
	KindContainer EntryKind = "container"
	// KindFile is a leaf with downloadable byte content
	KindFile EntryKind = "file"
	// KindOther is a remote node without byte content (native documents, shortcuts)
	KindOther EntryKind = "other"
)

// RemoteEntry is one child as reported by a directory listing
type RemoteEntry struct {
	// ID is the remote identifier
	ID string

	// Name is the display name of the entry in its parent
	Name string

	// Kind tells containers, files and unsupported nodes apart
	Kind EntryKind

	// Fingerprint is the remote content digest (hex MD5), empty when unknown
	Fingerprint string

	// MimeType as reported by the remote, if any
	MimeType string

	// Size in bytes, 0 when the remote does not report it
	Size int64

	// Parents lists the identifiers of the parent containers
	Parents []string
}

// IsContainer reports whether the entry should be expanded
func (e RemoteEntry) IsContainer() bool {
	return e.Kind == KindContainer
}

// HasFingerprint reports whether the remote side provided a digest
func (e RemoteEntry) HasFingerprint() bool {
	return e.Fingerprint != ""
}

// WorkItem is a container still waiting to be expanded
type WorkItem struct {
	// ContainerID is the remote identifier of the container
	ContainerID string

	// LocalPath is the local directory the container maps to
	LocalPath string

	// RelativePath is the slash-separated remote path from the traversal root
	RelativePath string
}
