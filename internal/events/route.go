package events

// Route names a top-level screen.
type Route string

const (
	RouteLogin     Route = "login"
	RouteDashboard Route = "dashboard"
)

// Navigator switches the active screen.
type Navigator interface {
	Navigate(route Route)
}

// BusNavigator publishes navigation requests on TopicRouteChanged.
type BusNavigator struct {
	bus Bus
}

// NewNavigator returns a Navigator publishing to bus.
func NewNavigator(bus Bus) *BusNavigator {
	return &BusNavigator{bus: bus}
}

// Navigate implements Navigator.
func (n *BusNavigator) Navigate(route Route) {
	n.bus.Publish(TopicRouteChanged, route)
}
