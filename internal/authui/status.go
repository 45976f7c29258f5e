package authui

// StatusKind identifies which rendering of the status view is shown
type StatusKind int

const (
	StatusLoading StatusKind = iota
	StatusSignedIn
	StatusSignedOut
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoading:
		return "loading"
	case StatusSignedIn:
		return "signed_in"
	case StatusSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Action is a user intent offered by the view. Dispatching it pushes Route.
type Action struct {
	Label string
	Route string
}

var (
	SignOutAction = Action{Label: "Sign Out", Route: LogoutPath}
	SignInAction  = Action{Label: "Sign In", Route: LoginPath}
)

// StatusView is the rendered authentication status
type StatusView struct {
	Kind    StatusKind
	Email   string
	Name    string
	Actions []Action
}

// Render maps a snapshot to exactly one view. Pending wins over any session
// content; otherwise a session shows its email with a sign-out action and no
// session shows a sign-in action.
func Render(s Snapshot) StatusView {
	switch {
	case s.Pending:
		return StatusView{Kind: StatusLoading}
	case s.Session != nil:
		return StatusView{
			Kind:    StatusSignedIn,
			Email:   s.Session.User.Email,
			Name:    s.Session.User.Name,
			Actions: []Action{SignOutAction},
		}
	default:
		return StatusView{
			Kind:    StatusSignedOut,
			Actions: []Action{SignInAction},
		}
	}
}

// Dispatch performs an action. Sign-out goes through the logout route rather
// than calling the provider, so the logout flow owns failure handling.
func Dispatch(a Action, nav Navigator) {
	nav.Push(a.Route)
}
