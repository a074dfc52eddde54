package startup

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/mgmtd/internal/mbean"
)

const (
	// Domain holds the management tree.
	Domain = "mgmt"
	// SupportDomain holds objects that exist before and after the tree.
	SupportDomain = "mgmt-support"

	Version = "0.1.0"
)

var (
	DomainRootName    = mbean.MustName("mgmt:type=domain-root")
	ServiceObjectName = mbean.MustName("mgmt-support:type=startup-service")
	TrackerObjectName = mbean.MustName("mgmt-support:type=mbean-tracker")
)

// coreChild is one fixed top-level object registered with the domain root.
type coreChild struct {
	objectType string
	obj        mbean.Managed
}

// loadCore registers the domain root and its fixed children. It either
// registers all of them or none.
func loadCore(server *mbean.Server, cycleID string, loadedAt time.Time) (mbean.Name, error) {
	root, err := server.Register(domainRoot(server, cycleID, loadedAt), DomainRootName)
	if err != nil {
		return "", fmt.Errorf("register domain root: %w", err)
	}
	registered := []mbean.Name{root}
	rollback := func() {
		for i := len(registered) - 1; i >= 0; i-- {
			_ = server.Unregister(registered[i])
		}
	}

	children := []coreChild{
		{objectType: "query-mgr", obj: queryMgr(server)},
		{objectType: "bulk-access", obj: bulkAccess(server)},
		{objectType: "tools", obj: tools()},
	}
	for _, child := range children {
		name, err := mbean.NewName(Domain, "type", child.objectType, "parent", root.Prop("type"))
		if err == nil {
			name, err = server.Register(child.obj, name, mbean.WithParent(root))
		}
		if err != nil {
			rollback()
			return "", fmt.Errorf("register %s: %w", child.objectType, err)
		}
		registered = append(registered, name)
	}
	return root, nil
}

func domainRoot(server *mbean.Server, cycleID string, loadedAt time.Time) mbean.Managed {
	return &mbean.Object{
		Attrs: map[string]mbean.Getter{
			"CycleID":  mbean.Static(cycleID),
			"LoadedAt": mbean.Static(loadedAt.UTC().Format(time.RFC3339Nano)),
			"Uptime": func() (any, error) {
				return time.Since(loadedAt).String(), nil
			},
			"ObjectCount": func() (any, error) {
				return len(server.Names(Domain)), nil
			},
		},
	}
}

func queryMgr(server *mbean.Server) mbean.Managed {
	return &mbean.Object{
		Ops: map[string]mbean.Operation{
			"queryDomain": func(args map[string]string) (any, error) {
				return nameStrings(server.Names(strings.TrimSpace(args["domain"]))), nil
			},
			"queryType": func(args map[string]string) (any, error) {
				want := strings.TrimSpace(args["type"])
				if want == "" {
					return nil, fmt.Errorf("query-mgr: missing type")
				}
				out := make([]string, 0)
				for _, name := range server.Names("") {
					if name.Prop("type") == want {
						out = append(out, name.String())
					}
				}
				return out, nil
			},
		},
	}
}

func bulkAccess(server *mbean.Server) mbean.Managed {
	return &mbean.Object{
		Ops: map[string]mbean.Operation{
			// getAttributes reads a comma-separated attribute list from one object.
			"getAttributes": func(args map[string]string) (any, error) {
				name, err := mbean.ParseName(args["name"])
				if err != nil {
					return nil, err
				}
				out := make(map[string]any)
				for _, attr := range strings.Split(args["attrs"], ",") {
					attr = strings.TrimSpace(attr)
					if attr == "" {
						continue
					}
					v, err := server.Attribute(name, attr)
					if err != nil {
						return nil, err
					}
					out[attr] = v
				}
				return out, nil
			},
		},
	}
}

func tools() mbean.Managed {
	return &mbean.Object{
		Attrs: map[string]mbean.Getter{
			"Version": mbean.Static(Version),
		},
		Ops: map[string]mbean.Operation{
			"validateName": func(args map[string]string) (any, error) {
				name, err := mbean.ParseName(args["name"])
				if err != nil {
					return nil, err
				}
				return name.String(), nil
			},
		},
	}
}

func nameStrings(names []mbean.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}
