// Package display renders panel fields. Terminal draws them with pterm for
// hosts without the LCD.
package display

import (
	"fmt"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

// FormatTime renders "HH:MM:SS"
func FormatTime(d device.DateTime) string {
	return fmt.Sprintf("%02d:%02d:%02d", d.Hour, d.Minute, d.Second)
}

// FormatDate renders "YYYY-MM-DD Week:N"
func FormatDate(d device.DateTime) string {
	return fmt.Sprintf("%04d-%02d-%02d Week:%d", d.Year, d.Month, d.Day, d.Weekday)
}

// FormatTemperature renders "Temp: 21.5 C"
func FormatTemperature(celsius float64) string {
	return fmt.Sprintf("Temp: %.1f C", celsius)
}

// FormatHumidity renders "Humi: 40.2%"
func FormatHumidity(percent float64) string {
	return fmt.Sprintf("Humi: %.1f%%", percent)
}
