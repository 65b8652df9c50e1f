// Package render turns workouts into map popups and list entries.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/models"
)

// Icon returns the activity emoji for t.
func Icon(t models.Type) string {
	switch t {
	case models.TypeRunning:
		return "🏃‍♂️"
	case models.TypeCycling:
		return "🚴‍♀️"
	}
	return ""
}

// PopupOptions returns the marker popup settings for w.
func PopupOptions(w models.Workout) mapview.PopupOptions {
	return mapview.PopupOptions{
		MaxWidth:     250,
		MinWidth:     100,
		AutoClose:    false,
		CloseOnClick: false,
		ClassName:    string(w.Type()) + "-popup",
	}
}

// PopupContent is the text shown in w's marker popup.
func PopupContent(w models.Workout) string {
	return Icon(w.Type()) + " " + w.Description()
}

// Detail is one value/unit row of a list entry.
type Detail struct {
	Icon  string `json:"icon"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Entry is the list representation of a workout.
type Entry struct {
	ID      string      `json:"id"`
	Type    models.Type `json:"type"`
	Title   string      `json:"title"`
	Details []Detail    `json:"details"`
}

// NewEntry builds the list entry for w. It reads only stored values, so
// reloaded workouts render exactly as they were saved.
func NewEntry(w models.Workout) Entry {
	e := Entry{
		ID:    w.ID(),
		Type:  w.Type(),
		Title: w.Description(),
		Details: []Detail{
			{Icon: Icon(w.Type()), Value: number(w.Distance()), Unit: "km"},
			{Icon: "⏱", Value: number(w.Duration()), Unit: "min"},
		},
	}
	switch v := w.Variant().(type) {
	case models.Running:
		e.Details = append(e.Details,
			Detail{Icon: "⚡️", Value: fixed1(v.Pace), Unit: "min/km"},
			Detail{Icon: "🦶🏼", Value: number(v.Cadence), Unit: "spm"},
		)
	case models.Cycling:
		e.Details = append(e.Details,
			Detail{Icon: "⚡️", Value: fixed1(v.Speed), Unit: "km/h"},
			Detail{Icon: "⛰", Value: number(v.ElevationGain), Unit: "m"},
		)
	default:
		panic(fmt.Sprintf("render: unhandled workout variant %T", v))
	}
	return e
}

// Entries builds list entries in store order, oldest first.
func Entries(ws []models.Workout) []Entry {
	out := make([]Entry, len(ws))
	for i, w := range ws {
		out[i] = NewEntry(w)
	}
	return out
}

func number(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
func fixed1(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }

var listTmpl = template.Must(template.New("list").Parse(`{{range .}}
<li class="workout workout--{{.Type}}" data-id="{{.ID}}">
  <h2 class="workout__title">{{.Title}}</h2>
  {{- range .Details}}
  <div class="workout__details">
    <span class="workout__icon">{{.Icon}}</span>
    <span class="workout__value">{{.Value}}</span>
    <span class="workout__unit">{{.Unit}}</span>
  </div>
  {{- end}}
</li>
{{- end}}
`))

// WriteList renders entries as the workout list HTML fragment.
func WriteList(w io.Writer, entries []Entry) error {
	if err := listTmpl.Execute(w, entries); err != nil {
		return fmt.Errorf("rendering workout list: %w", err)
	}
	return nil
}
