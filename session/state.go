package session

// State is the session life-cycle state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Refreshing
	Expired
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Navigator routes the application to a path, e.g. the login surface.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}
