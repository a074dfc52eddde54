package startup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/mgmtd/internal/loaders"
	"github.com/danmuck/mgmtd/internal/loaders/kv"
	"github.com/danmuck/mgmtd/internal/loaders/runtimemon"
	"github.com/danmuck/mgmtd/internal/loaders/settings"
)

var ErrUnknownBuiltinLoader = errors.New("startup: unknown builtin loader")

var loaderAliases = map[string]string{
	"kv":       kv.LoaderID,
	"runtime":  runtimemon.LoaderID,
	"settings": settings.LoaderID,
}

// BuildBuiltinRegistry maps configured loader ids to builtin loaders.
// Blank and "none" entries are skipped, repeats are ignored.
func BuildBuiltinRegistry(ids []string, values map[string]string) (*loaders.Registry, error) {
	reg := loaders.NewRegistry()

	seen := make(map[string]struct{})
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || id == "none" {
			continue
		}
		if canonical, ok := loaderAliases[id]; ok {
			id = canonical
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		var loader loaders.Loader
		switch id {
		case kv.LoaderID:
			loader = kv.NewLoader()
		case runtimemon.LoaderID:
			loader = runtimemon.NewLoader()
		case settings.LoaderID:
			loader = settings.NewLoader(values)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownBuiltinLoader, id)
		}
		if err := reg.Register(loader); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
