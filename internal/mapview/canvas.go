// Package mapview models the interactive map widget: view, tile layers,
// markers with popups, and click dispatch. A frontend draws Snapshot.
package mapview

import (
	"errors"
	"sync"
	"time"

	"github.com/claude/mapty/internal/models"
)

// ErrNotInitialized is returned by Click before Initialize.
var ErrNotInitialized = errors.New("map not initialized")

// MarkerID identifies a marker on the canvas.
type MarkerID int

// PopupOptions mirrors the widget's popup settings.
type PopupOptions struct {
	MaxWidth     int    `json:"max_width"`
	MinWidth     int    `json:"min_width"`
	AutoClose    bool   `json:"auto_close"`
	CloseOnClick bool   `json:"close_on_click"`
	ClassName    string `json:"class_name"`
}

// ViewOptions controls how SetView moves the map.
type ViewOptions struct {
	Animate     bool
	PanDuration time.Duration
}

type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

type Popup struct {
	Options PopupOptions `json:"options"`
	Content string       `json:"content"`
	Open    bool         `json:"open"`
}

type Marker struct {
	ID     MarkerID           `json:"id"`
	Coords models.Coordinates `json:"coords"`
	Popup  *Popup             `json:"popup,omitempty"`
}

type View struct {
	Center        models.Coordinates `json:"center"`
	Zoom          int                `json:"zoom"`
	Animate       bool               `json:"animate"`
	PanDurationMs int64              `json:"pan_duration_ms"`
}

// State is a point-in-time copy of the canvas.
type State struct {
	Ready   bool        `json:"ready"`
	View    View        `json:"view"`
	Tiles   []TileLayer `json:"tiles"`
	Markers []Marker    `json:"markers"`
}

// ClickHandler receives map clicks.
type ClickHandler func(at models.Coordinates) error

// Canvas is safe for concurrent use.
type Canvas struct {
	mu      sync.Mutex
	ready   bool
	view    View
	tiles   []TileLayer
	markers []Marker
	nextID  MarkerID
	onClick ClickHandler
}

// New returns an uninitialized canvas.
func New() *Canvas {
	return &Canvas{}
}

// Initialize centers a fresh map, dropping any previous layers, markers and
// click handler.
func (c *Canvas) Initialize(center models.Coordinates, zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	c.view = View{Center: center, Zoom: zoom}
	c.tiles = nil
	c.markers = nil
	c.nextID = 0
	c.onClick = nil
}

// Reset returns the canvas to its uninitialized state.
func (c *Canvas) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.view = View{}
	c.tiles = nil
	c.markers = nil
	c.nextID = 0
	c.onClick = nil
}

func (c *Canvas) AddTileLayer(url, attribution string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiles = append(c.tiles, TileLayer{URL: url, Attribution: attribution})
}

// OnClick registers the handler invoked by Click.
func (c *Canvas) OnClick(h ClickHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClick = h
}

// Click dispatches a click at the given position to the registered handler.
func (c *Canvas) Click(at models.Coordinates) error {
	c.mu.Lock()
	h, ready := c.onClick, c.ready
	c.mu.Unlock()
	if !ready || h == nil {
		return ErrNotInitialized
	}
	return h(at)
}

func (c *Canvas) AddMarker(at models.Coordinates) MarkerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.markers = append(c.markers, Marker{ID: c.nextID, Coords: at})
	return c.nextID
}

// BindPopup attaches an opened popup to marker id. Unknown ids are ignored.
func (c *Canvas) BindPopup(id MarkerID, opts PopupOptions, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.markers {
		if c.markers[i].ID == id {
			c.markers[i].Popup = &Popup{Options: opts, Content: content, Open: true}
			return
		}
	}
}

func (c *Canvas) SetView(center models.Coordinates, zoom int, opts ViewOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = View{
		Center:        center,
		Zoom:          zoom,
		Animate:       opts.Animate,
		PanDurationMs: opts.PanDuration.Milliseconds(),
	}
}

// Ready reports whether Initialize has been called.
func (c *Canvas) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Snapshot returns a deep copy of the canvas state.
func (c *Canvas) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Ready:   c.ready,
		View:    c.view,
		Tiles:   append([]TileLayer{}, c.tiles...),
		Markers: make([]Marker, len(c.markers)),
	}
	for i, m := range c.markers {
		if m.Popup != nil {
			p := *m.Popup
			m.Popup = &p
		}
		s.Markers[i] = m
	}
	return s
}
