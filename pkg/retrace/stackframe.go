// Package retrace wraps pkg/resolver and pkg/mapping into the externally
// visible retracer operations (spec §6): remap_class, remap_frame,
// remap_method, remap_throwable, remap_stack_trace, plus mapping metadata.
package retrace

// StackFrame is one `at <class>.<method>(<file>:<line>)` element, before or
// after remapping.
type StackFrame struct {
	Class  string
	Method string
	File   string
	Line   int

	// Parameters disambiguates overloaded methods by parameter type. nil
	// means the caller did not supply a signature; a non-nil (possibly
	// empty) slice means they did.
	Parameters []string

	MethodSynthesized bool
}

// MethodMatch is one result of RemapMethod: an original (class, method)
// pair, without the full StackFrame shape.
type MethodMatch struct {
	OriginalClass  string
	OriginalMethod string
}
