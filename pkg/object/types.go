package object

// Hash is a 64-character hex-encoded SHA-256 digest.
type Hash string

// AbbrevLength is the number of hex characters used when a hash is shown to
// reviewers, e.g. in generated commit message headers.
const AbbrevLength = 8

// Short returns the abbreviated form of h.
func (h Hash) Short() string {
	return Abbreviate(h, AbbrevLength)
}

// Abbreviate returns the first n characters of h, or all of h when it is
// shorter than n.
func Abbreviate(h Hash, n int) string {
	if n <= 0 || len(h) <= n {
		return string(h)
	}
	return string(h[:n])
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
	TreeModeSymlink    = "120000"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Hash points at a blob for files
// and symlinks and at a subtree for directories.
type TreeEntry struct {
	Name  string
	IsDir bool
	Mode  string
	Hash  Hash
}

// TreeObj holds a sorted list of tree entries.
type TreeObj struct {
	Entries []TreeEntry // sorted by Name
}

// Identity is a person plus the instant and zone an action was recorded in.
type Identity struct {
	Name     string
	Email    string
	When     int64  // unix seconds
	Timezone string // "+hhmm" / "-hhmm"
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Identity
	Committer Identity
	Message   string
}
