package loaders

import "github.com/danmuck/mgmtd/internal/mbean"

// Metadata is the contract for loader identity and display data.
type Metadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Loader is one pluggable management subsystem.
//
// Load registers the loader's subtree under root and returns the top of
// that subtree. Unload removes whatever Load registered. Either may fail;
// the startup service tolerates both.
type Loader interface {
	Metadata() Metadata
	Load(reg mbean.Registrar, root mbean.Name) (mbean.Name, error)
	Unload(reg mbean.Registrar) error
}
