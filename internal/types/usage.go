package types

import "sort"

// CallKind distinguishes the syntactic forms a call site can take.
type CallKind string

const (
	CallParent   CallKind = "parent_call"
	CallStatic   CallKind = "static_call"
	CallInstance CallKind = "instance_call"
	CallNew      CallKind = "instantiation"
)

// CallSite is one concrete invocation found in a consumer body.
type CallSite struct {
	Kind       CallKind `json:"kind"`
	Method     string   `json:"method"`
	Positional int      `json:"positional"`
	Named      []string `json:"named,omitempty"`
	// Unpacked is true when an argument list contains a spread, making counts unknowable.
	Unpacked bool `json:"unpacked,omitempty"`
	Line     int  `json:"line"`
}

// UsageInfo describes how one dependent touches one changed vendor class.
type UsageInfo struct {
	OverridesConstructor bool                `json:"overrides_constructor,omitempty"`
	CallsConstructor     bool                `json:"calls_constructor,omitempty"`
	OverriddenMethods    map[string]struct{} `json:"overridden_methods,omitempty"`
	ParentCalledMethods  map[string]struct{} `json:"parent_called_methods,omitempty"`
	InstanceCalled       map[string]struct{} `json:"instance_called,omitempty"`
	StaticCalled         map[string]struct{} `json:"static_called,omitempty"`
	ImplementsInterface  bool                `json:"implements_interface,omitempty"`
	ImplementedMethods   map[string]struct{} `json:"implemented_methods,omitempty"`
	UsesTrait            bool                `json:"uses_trait,omitempty"`
	Calls                []CallSite          `json:"calls,omitempty"`
}

func NewUsageInfo() *UsageInfo {
	return &UsageInfo{
		OverriddenMethods:   map[string]struct{}{},
		ParentCalledMethods: map[string]struct{}{},
		InstanceCalled:      map[string]struct{}{},
		StaticCalled:        map[string]struct{}{},
		ImplementedMethods:  map[string]struct{}{},
	}
}

// HasAnyUsage gates all resolution work for a (class, dependent) pair.
func (u *UsageInfo) HasAnyUsage() bool {
	if u == nil {
		return false
	}
	return u.OverridesConstructor ||
		u.CallsConstructor ||
		len(u.OverriddenMethods) > 0 ||
		len(u.ParentCalledMethods) > 0 ||
		len(u.InstanceCalled) > 0 ||
		len(u.StaticCalled) > 0 ||
		u.ImplementsInterface ||
		len(u.ImplementedMethods) > 0 ||
		u.UsesTrait
}

// CallsTo returns the recorded call sites of the given kind and method.
func (u *UsageInfo) CallsTo(kind CallKind, method string) []CallSite {
	var out []CallSite
	for _, c := range u.Calls {
		if c.Kind == kind && c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// SortedKeys returns a set's members in lexical order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
