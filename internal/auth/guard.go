package auth

// Route names a console destination.
type Route string

const (
	RouteSignIn         Route = "sign-in"
	RouteSignUp         Route = "sign-up"
	RouteForgotPassword Route = "forgot-password"
	RouteChangePassword Route = "change-password"
	RouteHome           Route = "home"
	RouteOnboarding     Route = "onboarding"
	RouteClubs          Route = "clubs"
	RouteInventory      Route = "inventory"
	RouteSales          Route = "sales"
	RouteEmployees      Route = "employees"
	RouteSettings       Route = "settings"
)

// Sections are the protected destinations listed in the console menu.
var Sections = []Route{RouteHome, RouteClubs, RouteInventory, RouteSales, RouteEmployees, RouteSettings}

// Public reports whether r is reachable without a session.
func (r Route) Public() bool {
	switch r {
	case RouteSignIn, RouteSignUp, RouteForgotPassword:
		return true
	}
	return false
}

// Verdict is what the console should do for a route.
type Verdict int

const (
	// Render shows the requested route.
	Render Verdict = iota
	// ShowLoading shows a neutral placeholder; the session is not known yet.
	ShowLoading
	// Redirect sends the user to Decision.To instead.
	Redirect
)

// Decision is the outcome of Guard.
type Decision struct {
	Verdict Verdict
	To      Route
}

// Guard decides whether route may render under state. It is a pure function
// of its arguments and is re-evaluated on every state change.
//
// Protected routes wait while loading, send logged-out users to sign-in, and
// hold gated employees on the change-password form. Public routes render for
// logged-out users and send signed-in users onward.
func Guard(state State, route Route) Decision {
	if route.Public() {
		switch {
		case state.Loading || state.Session == nil:
			return Decision{Verdict: Render}
		case state.NeedsPasswordChange:
			return Decision{Verdict: Redirect, To: RouteChangePassword}
		default:
			return Decision{Verdict: Redirect, To: RouteHome}
		}
	}

	switch {
	case state.Loading:
		return Decision{Verdict: ShowLoading}
	case state.Session == nil:
		return Decision{Verdict: Redirect, To: RouteSignIn}
	case state.NeedsPasswordChange && route != RouteChangePassword:
		return Decision{Verdict: Redirect, To: RouteChangePassword}
	}
	return Decision{Verdict: Render}
}

// Resolve follows Guard's redirects and returns the route that will render.
// ok is false while the session is still loading.
func Resolve(state State, route Route) (Route, bool) {
	for i := 0; i < 4; i++ {
		d := Guard(state, route)
		switch d.Verdict {
		case Render:
			return route, true
		case ShowLoading:
			return "", false
		}
		route = d.To
	}
	return route, true
}
