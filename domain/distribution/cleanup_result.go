package distribution

// CleanupResult contains information about archives deleted to free quota
type CleanupResult struct {
	DeletedFiles []DeletedFile
	FreedBytes   int64
}

// DeletedFile represents an archived file that was deleted
type DeletedFile struct {
	Name string
	Size int64
}
