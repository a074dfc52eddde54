package mbean

import "sort"

// Getter reads one attribute value.
type Getter func() (any, error)

// Operation executes one named operation.
type Operation func(args map[string]string) (any, error)

// Managed is an object that can be registered and addressed by Name.
type Managed interface {
	Attributes() map[string]Getter
	Operations() map[string]Operation
}

// Object adapts plain maps into a Managed value.
type Object struct {
	Attrs map[string]Getter
	Ops   map[string]Operation
}

func (o *Object) Attributes() map[string]Getter {
	return o.Attrs
}

func (o *Object) Operations() map[string]Operation {
	return o.Ops
}

// Static returns a Getter for a fixed value.
func Static(v any) Getter {
	return func() (any, error) {
		return v, nil
	}
}

// Info is the listing view of a registered object.
type Info struct {
	Name       Name     `json:"name"`
	Parent     Name     `json:"parent,omitempty"`
	Attributes []string `json:"attributes"`
	Operations []string `json:"operations"`
}

func describe(name, parent Name, obj Managed) Info {
	attrs := make([]string, 0, len(obj.Attributes()))
	for attr := range obj.Attributes() {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	ops := make([]string, 0, len(obj.Operations()))
	for op := range obj.Operations() {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	return Info{
		Name:       name,
		Parent:     parent,
		Attributes: attrs,
		Operations: ops,
	}
}
