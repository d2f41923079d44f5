package part

// Reserved command names the run loop understands.
const (
	// CommandDone leaves the innermost open flow. At the top level it is
	// equivalent to CommandQuit.
	CommandDone = "done"

	// CommandQuit ends the entire experiment.
	CommandQuit = "quit"
)

// IsCommand reports whether name is a reserved command.
func IsCommand(name string) bool {
	return name == CommandDone || name == CommandQuit
}

// Route is the result of a decision or a flow entry: either a decided
// route name, a reserved command, or "undecided", which hands control to
// the operator. Undecided is not an error - genuine failures travel on the
// error return next to the Route.
type Route struct {
	// Name is the route name (looked up in the part's Next mapping), a
	// reserved command, or "" when undecided.
	Name string

	// CanUsePartName lets Name double as a part short name when the
	// part's Next mapping has no entry for it.
	CanUsePartName bool
}

// Undecided is the route that asks the operator what to do next.
var Undecided = Route{}

// RouteTo returns a decided route.
func RouteTo(name string) Route {
	return Route{Name: name}
}

// RouteToPart returns a decided route whose name may be used directly as a
// part short name if no Next mapping exists for it.
func RouteToPart(name string) Route {
	return Route{Name: name, CanUsePartName: true}
}

// Done leaves the current flow.
func Done() Route { return Route{Name: CommandDone} }

// Quit ends the experiment.
func Quit() Route { return Route{Name: CommandQuit} }

// IsUndecided reports whether the route asks for operator input.
func (r Route) IsUndecided() bool { return r.Name == "" }

// IsCommand reports whether the route is a reserved command.
func (r Route) IsCommand() bool { return IsCommand(r.Name) }
