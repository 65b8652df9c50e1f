package coordinator

import "errors"

var (
	// ErrGeolocationUnavailable means the map could not be initialized. The
	// tracker keeps working without a map.
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	// ErrMapUnavailable is returned for map events while no map is loaded.
	ErrMapUnavailable = errors.New("map unavailable")
	// ErrNoLocation is returned when a form is submitted without a prior map click.
	ErrNoLocation = errors.New("no map location selected")
)

// Validation failure reasons.
const (
	ReasonNotFinite   = "not_finite"
	ReasonNotPositive = "not_positive"
	ReasonUnknownType = "unknown_type"
)

// User-visible alert texts.
const (
	MsgPositionFailed = "Failed to get your position!"
	MsgInvalidValues  = "Please insert valid values"
	MsgNotPositive    = "Please insert positive values"
	MsgUnknownType    = "Please choose running or cycling"
)

// ValidationError rejects a form submission. Message is shown to the user.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
