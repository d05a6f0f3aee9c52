// Package theme provides the color palettes for the TUI and CLI and
// remembers the user's selection in the device store.
package theme

import (
	"fmt"
	"sort"
	"sync"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/kv"
)

// DefaultName is the palette used when nothing is stored.
const DefaultName = "mocha"

const storeKey = "theme"

// Palette is the set of colors the UI draws from.
type Palette struct {
	Name string

	Base    lipgloss.Color
	Mantle  lipgloss.Color
	Crust   lipgloss.Color
	Text    lipgloss.Color
	Subtle  lipgloss.Color
	Overlay lipgloss.Color
	Surface lipgloss.Color
	Raised  lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color
	Highlight lipgloss.Color
}

// flavor is the slice of the catppuccin surface the palettes use.
type flavor interface {
	Base() catppuccin.Color
	Mantle() catppuccin.Color
	Crust() catppuccin.Color
	Text() catppuccin.Color
	Subtext0() catppuccin.Color
	Overlay0() catppuccin.Color
	Surface0() catppuccin.Color
	Surface1() catppuccin.Color
	Mauve() catppuccin.Color
	Pink() catppuccin.Color
	Teal() catppuccin.Color
	Green() catppuccin.Color
	Yellow() catppuccin.Color
	Red() catppuccin.Color
	Blue() catppuccin.Color
	Lavender() catppuccin.Color
}

func fromFlavor(name string, f flavor) Palette {
	c := func(col catppuccin.Color) lipgloss.Color {
		return lipgloss.Color(col.Hex)
	}
	return Palette{
		Name:      name,
		Base:      c(f.Base()),
		Mantle:    c(f.Mantle()),
		Crust:     c(f.Crust()),
		Text:      c(f.Text()),
		Subtle:    c(f.Subtext0()),
		Overlay:   c(f.Overlay0()),
		Surface:   c(f.Surface0()),
		Raised:    c(f.Surface1()),
		Primary:   c(f.Mauve()),
		Secondary: c(f.Pink()),
		Accent:    c(f.Teal()),
		Success:   c(f.Green()),
		Warning:   c(f.Yellow()),
		Error:     c(f.Red()),
		Info:      c(f.Blue()),
		Highlight: c(f.Lavender()),
	}
}

var palettes = map[string]Palette{
	"latte":     fromFlavor("latte", catppuccin.Latte),
	"frappe":    fromFlavor("frappe", catppuccin.Frappe),
	"macchiato": fromFlavor("macchiato", catppuccin.Macchiato),
	"mocha":     fromFlavor("mocha", catppuccin.Mocha),
}

// Names lists the available palettes in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns a palette by name.
func ByName(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// Manager serves the active palette and persists selections.
type Manager struct {
	store kv.Store

	mu     sync.RWMutex
	active Palette
}

// NewManager loads the stored selection, or falls back to defaultName
// and then to DefaultName. Unknown stored names fall back silently so
// a stale store never blocks startup.
func NewManager(store kv.Store, defaultName string) *Manager {
	if store == nil {
		store = kv.NewMemory()
	}
	if defaultName == "" {
		defaultName = DefaultName
	}

	active, ok := ByName(defaultName)
	if !ok {
		active = palettes[DefaultName]
	}
	if stored, found, err := store.Get(storeKey); err == nil && found {
		if p, ok := ByName(stored); ok {
			active = p
		}
	}

	return &Manager{store: store, active: active}
}

// Active returns the current palette.
func (m *Manager) Active() Palette {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Set switches the active palette and persists the choice.
func (m *Manager) Set(name string) (Palette, error) {
	p, ok := ByName(name)
	if !ok {
		return Palette{}, fmt.Errorf("unknown theme %q (available: %v)", name, Names())
	}

	m.mu.Lock()
	m.active = p
	m.mu.Unlock()

	if err := m.store.Set(storeKey, name); err != nil {
		return p, fmt.Errorf("persisting theme selection: %w", err)
	}
	return p, nil
}
