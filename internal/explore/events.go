package explore

// EventKind names what changed.
type EventKind string

const (
	// EventSelection carries a Selection.
	EventSelection EventKind = "selection"
	// EventZones carries the new zones.FetchState.
	EventZones EventKind = "zones"
	// EventLoading carries a bool.
	EventLoading EventKind = "loading"
	// EventLayers carries Layers.
	EventLayers EventKind = "layers"
	// EventModals carries Modals.
	EventModals EventKind = "modals"
	// EventTour carries the tour step as an int.
	EventTour EventKind = "tour"
)

// Event is delivered to Config.Listener.
type Event struct {
	Kind    EventKind
	Payload any
}
