package startup

import "github.com/danmuck/mgmtd/internal/mbean"

// Remote operation names on the service object.
const (
	OpLoad   = "loadAMXMBeans"
	OpUnload = "unloadAMXMBeans"
)

func (s *Service) managed() mbean.Managed {
	return &mbean.Object{
		Attrs: map[string]mbean.Getter{
			"DomainRoot": func() (any, error) {
				root, ok := s.DomainRoot()
				if !ok {
					return nil, nil
				}
				return root.String(), nil
			},
			"Phase": func() (any, error) {
				return string(s.Status().Phase), nil
			},
			"ServiceURLs": func() (any, error) {
				return s.ServiceURLs(), nil
			},
			"Cycle": func() (any, error) {
				return s.Status().Cycle, nil
			},
			"CycleID": func() (any, error) {
				return s.Status().CycleID, nil
			},
			"Loaders": func() (any, error) {
				return s.loaders.ListMetadata(), nil
			},
		},
		Ops: map[string]mbean.Operation{
			OpLoad: func(map[string]string) (any, error) {
				root, err := s.EnsureLoaded()
				if err != nil {
					return nil, err
				}
				return root.String(), nil
			},
			OpUnload: func(map[string]string) (any, error) {
				s.EnsureUnloaded()
				return nil, nil
			},
			"status": func(map[string]string) (any, error) {
				return s.Status(), nil
			},
		},
	}
}
