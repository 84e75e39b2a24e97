package memory

import (
	"path/filepath"

	"github.com/jnorthrup/redline/providers/storage/filestore"
)

// PersistentDir is the subdirectory of a file manager's base path that holds
// persistent-role keys.
const PersistentDir = "persistent"

// NewFileManager returns a Manager backed by JSON files under basePath. The
// context backend writes {basePath}/history.json; persistent keys live in
// {basePath}/persistent so the two roles never share a file.
func NewFileManager(basePath string, opts ...Option) *Manager {
	persistent := filestore.New(filepath.Join(basePath, PersistentDir))
	conversation := filestore.New(basePath)
	return New(persistent, conversation, opts...)
}
