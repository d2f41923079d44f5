package part

import "strings"

// Name utilities mapping between short (flow-relative) and fully-qualified
// (dot-separated) part names. Pure functions; the engine supplies the
// current flow context.

// Qualify converts a short name to a full name given the full name of the
// enclosing flow ("" at top level). Commands and empty names pass through
// unchanged.
func Qualify(flowFullName, shortName string) string {
	if shortName == "" || IsCommand(shortName) || flowFullName == "" {
		return shortName
	}
	return flowFullName + "." + shortName
}

// ShortName strips the enclosing flow prefix from a full name. Returns the
// full name unchanged if it is not nested under the flow.
func ShortName(flowFullName, fullName string) string {
	if flowFullName == "" {
		return fullName
	}
	prefix := flowFullName + "."
	if strings.HasPrefix(fullName, prefix) {
		return fullName[len(prefix):]
	}
	return fullName
}

// IsChild reports whether fullName is a direct child of the flow (not a
// grandchild or deeper). With flowFullName == "" it reports top-level
// parts.
func IsChild(flowFullName, fullName string) bool {
	if flowFullName == "" {
		return fullName != "" && !strings.Contains(fullName, ".")
	}
	prefix := flowFullName + "."
	if !strings.HasPrefix(fullName, prefix) {
		return false
	}
	rest := fullName[len(prefix):]
	return rest != "" && !strings.Contains(rest, ".")
}

// ChildShortNames filters the given full names down to the direct children
// of the flow and returns their short names, preserving input order.
func ChildShortNames(flowFullName string, fullNames []string) []string {
	var out []string
	for _, full := range fullNames {
		if IsChild(flowFullName, full) {
			out = append(out, ShortName(flowFullName, full))
		}
	}
	return out
}
