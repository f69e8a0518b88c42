package repository

import "github.com/spf13/afero"

// FileSystemRepository is the filesystem tokens and import state are kept on.
type FileSystemRepository interface {
	afero.Fs
}

// NewOSFileSystem returns the host filesystem. File locks always live on the
// host, so the JSON repositories expect real paths.
func NewOSFileSystem() FileSystemRepository {
	return afero.NewOsFs()
}
