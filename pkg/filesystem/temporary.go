package filesystem

const (
	// TemporaryNamePrefix is the file name prefix used for all temporary files
	// and directories created by packmap. Using this prefix guarantees that
	// any such files are recognizable as scratch state rather than published
	// cache content. It may be suffixed with additional elements if desired.
	TemporaryNamePrefix = ".packmap-temporary-"
)
