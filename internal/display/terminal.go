package display

import (
	"io"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/weather"
)

// Field names one line of the panel
type Field int

const (
	FieldSSID Field = iota
	FieldTime
	FieldDate
	FieldIndoorTemperature
	FieldIndoorHumidity
	FieldOutdoorTemperature
	FieldOutdoorIcon
	FieldOutdoorCity

	numFields
)

// String returns the label shown next to the field
func (f Field) String() string {
	switch f {
	case FieldSSID:
		return "wifi"
	case FieldTime:
		return "time"
	case FieldDate:
		return "date"
	case FieldIndoorTemperature:
		return "indoor"
	case FieldIndoorHumidity:
		return "indoor"
	case FieldOutdoorTemperature:
		return "outdoor"
	case FieldOutdoorIcon:
		return "weather"
	case FieldOutdoorCity:
		return "city"
	default:
		return "unknown"
	}
}

// Terminal implements device.Display by printing each field update as a
// line and keeping the whole panel for Render
type Terminal struct {
	out io.Writer

	mu     sync.Mutex
	fields [numFields]string
}

// NewTerminal writes updates to out
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

var _ device.Display = (*Terminal)(nil)

// SetSSID shows the network name or the disconnected text
func (t *Terminal) SetSSID(text string) {
	t.set(FieldSSID, text)
}

// SetTime shows d as HH:MM:SS
func (t *Terminal) SetTime(d device.DateTime) {
	t.set(FieldTime, FormatTime(d))
}

// SetDate shows d with its ISO weekday
func (t *Terminal) SetDate(d device.DateTime) {
	t.set(FieldDate, FormatDate(d))
}

// SetIndoorTemperature shows the indoor reading in Celsius
func (t *Terminal) SetIndoorTemperature(celsius float64) {
	t.set(FieldIndoorTemperature, FormatTemperature(celsius))
}

// SetIndoorHumidity shows the indoor relative humidity
func (t *Terminal) SetIndoorHumidity(percent float64) {
	t.set(FieldIndoorHumidity, FormatHumidity(percent))
}

// SetOutdoorTemperature shows the outdoor temperature in Celsius
func (t *Terminal) SetOutdoorTemperature(celsius float64) {
	t.set(FieldOutdoorTemperature, FormatTemperature(celsius))
}

// SetOutdoorIcon shows the weather icon name
func (t *Terminal) SetOutdoorIcon(icon weather.Icon) {
	t.set(FieldOutdoorIcon, icon.String())
}

// SetOutdoorCity shows the city the weather was reported for
func (t *Terminal) SetOutdoorCity(city string) {
	t.set(FieldOutdoorCity, city)
}

// Value returns the current text of a field
func (t *Terminal) Value(f Field) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[f]
}

// Render returns the whole panel in a box
func (t *Terminal) Render() string {
	t.mu.Lock()
	fields := t.fields
	t.mu.Unlock()

	var lines []string
	for f, v := range fields {
		if v == "" {
			continue
		}
		lines = append(lines, pterm.Sprintf("%-8s %s", pterm.Gray(Field(f).String()), v))
	}
	if len(lines) == 0 {
		lines = append(lines, pterm.Gray("(empty)"))
	}
	return pterm.DefaultBox.WithTitle("panelclock").Sprint(strings.Join(lines, "\n"))
}

func (t *Terminal) set(f Field, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.fields[f] = text
	pterm.Fprintln(t.out, pterm.Sprintf("%s %s", pterm.LightCyan("["+f.String()+"]"), text))
}
