package corpus

// Keys lays out every storage key of a corpus generation under one prefix:
//
//	<p>jobs:<version>:<job_id>      posting hash
//	<p>idx:<version>                RediSearch index over those hashes
//	<p>idx                          alias of the current index
//	<p>corpus:<version>:meta        meta hash
//	<p>corpus:<version>:centroids   label -> centroid vector
//	<p>corpus:current, <p>corpus:previous
type Keys struct {
	prefix string
}

// NewKeys returns the key layout for prefix (e.g. "jobmatch:").
func NewKeys(prefix string) Keys { return Keys{prefix: prefix} }

// Job is the hash key of one posting.
func (k Keys) Job(version, id string) string { return k.JobPrefix(version) + id }

// JobPrefix is the common prefix of all postings of a version.
func (k Keys) JobPrefix(version string) string { return k.prefix + "jobs:" + version + ":" }

// Index names the RediSearch index of a version.
func (k Keys) Index(version string) string { return k.prefix + "idx:" + version }

// Alias always points at the current version's index.
func (k Keys) Alias() string { return k.prefix + "idx" }

// Current holds the live version id.
func (k Keys) Current() string { return k.prefix + "corpus:current" }

// Previous holds the version replaced by the last publish.
func (k Keys) Previous() string { return k.prefix + "corpus:previous" }

// Meta is the metadata hash of a version.
func (k Keys) Meta(version string) string { return k.prefix + "corpus:" + version + ":meta" }

// Centroids is the per-label centroid hash of a version.
func (k Keys) Centroids(version string) string { return k.prefix + "corpus:" + version + ":centroids" }
