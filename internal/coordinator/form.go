package coordinator

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/claude/mapty/internal/models"
)

// FormInput holds the raw form field values as typed by the user.
type FormInput struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

// FormState is what the form surface should currently show.
type FormState struct {
	Visible          bool                `json:"visible"`
	Type             models.Type         `json:"type"`
	CadenceVisible   bool                `json:"cadence_visible"`
	ElevationVisible bool                `json:"elevation_visible"`
	Location         *models.Coordinates `json:"location,omitempty"`
}

func hiddenForm(t models.Type) FormState {
	return FormState{
		Type:             t,
		CadenceVisible:   t == models.TypeRunning,
		ElevationVisible: t == models.TypeCycling,
	}
}

// parseNumber reads a form field. Blank reads as 0 and unparsable text as NaN,
// so both are caught by the finite/positive checks.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func allFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func allPositive(vals ...float64) bool {
	for _, v := range vals {
		if !(v > 0) {
			return false
		}
	}
	return true
}

// buildWorkout validates in and constructs the matching variant at location.
// Cycling elevation is only required to be finite: it may be zero or negative.
func buildWorkout(in FormInput, fallback models.Type, at models.Coordinates, now time.Time) (models.Workout, error) {
	t := models.Type(strings.TrimSpace(in.Type))
	if t == "" {
		t = fallback
	}
	distance := parseNumber(in.Distance)
	duration := parseNumber(in.Duration)

	switch t {
	case models.TypeRunning:
		cadence := parseNumber(in.Cadence)
		if !allFinite(distance, duration, cadence) {
			return models.Workout{}, &ValidationError{Reason: ReasonNotFinite, Message: MsgInvalidValues}
		}
		if !allPositive(distance, duration, cadence) {
			return models.Workout{}, &ValidationError{Reason: ReasonNotPositive, Message: MsgNotPositive}
		}
		return models.NewRunning(now, at, distance, duration, cadence), nil
	case models.TypeCycling:
		elevation := parseNumber(in.Elevation)
		if !allFinite(distance, duration, elevation) {
			return models.Workout{}, &ValidationError{Reason: ReasonNotFinite, Message: MsgInvalidValues}
		}
		if !allPositive(distance, duration) {
			return models.Workout{}, &ValidationError{Reason: ReasonNotPositive, Message: MsgNotPositive}
		}
		return models.NewCycling(now, at, distance, duration, elevation), nil
	default:
		return models.Workout{}, &ValidationError{Reason: ReasonUnknownType, Message: MsgUnknownType}
	}
}
