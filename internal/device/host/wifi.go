package host

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/livinlefevreloca/panelclock/internal/device"
)

// ErrNoInterface is returned when no wireless interface can be found
var ErrNoInterface = errors.New("host: no wireless interface")

const procNetWireless = "/proc/net/wireless"

// WiFi derives the station status from a network interface. The interface
// counts as connected when it is up and has at least one address.
type WiFi struct {
	iface string
	ssid  string

	interfaces   func(ctx context.Context) (net.InterfaceStatList, error)
	readWireless func() ([]byte, error)
}

// NewWiFi watches iface, or the first "wl*" interface if iface is empty.
// ssid is reported as the network name while connected.
func NewWiFi(iface, ssid string) *WiFi {
	return &WiFi{
		iface:      iface,
		ssid:       ssid,
		interfaces: net.InterfacesWithContext,
		readWireless: func() ([]byte, error) {
			return os.ReadFile(procNetWireless)
		},
	}
}

// Status reports the interface state
func (w *WiFi) Status(ctx context.Context) (device.WiFiInfo, error) {
	list, err := w.interfaces(ctx)
	if err != nil {
		return device.WiFiInfo{}, errors.Wrap(err, "list network interfaces")
	}

	stat, ok := w.pick(list)
	if !ok {
		if w.iface != "" {
			return device.WiFiInfo{}, errors.Wrapf(ErrNoInterface, "interface %q", w.iface)
		}
		return device.WiFiInfo{}, ErrNoInterface
	}

	info := device.WiFiInfo{
		BSSID:     stat.HardwareAddr,
		Connected: isUp(stat.Flags) && len(stat.Addrs) > 0,
	}
	if info.Connected {
		info.SSID = w.ssid
		if info.SSID == "" {
			info.SSID = stat.Name
		}
	}
	if raw, err := w.readWireless(); err == nil {
		info.RSSI = parseSignalLevel(raw, stat.Name)
	}
	return info, nil
}

func (w *WiFi) pick(list net.InterfaceStatList) (net.InterfaceStat, bool) {
	for _, stat := range list {
		if w.iface != "" {
			if stat.Name == w.iface {
				return stat, true
			}
			continue
		}
		if strings.HasPrefix(stat.Name, "wl") {
			return stat, true
		}
	}
	return net.InterfaceStat{}, false
}

func isUp(flags []string) bool {
	for _, f := range flags {
		if f == "up" {
			return true
		}
	}
	return false
}

// parseSignalLevel reads the signal level in dBm for iface from the
// /proc/net/wireless table. Returns 0 when the interface is not listed.
//
//	Inter-| sta-|   Quality        |   Discarded packets
//	 face | tus | link level noise |  nwid  crypt   frag
//	wlan0: 0000   54.  -56.  -256        0      0      0
func parseSignalLevel(raw []byte, iface string) int {
	for _, line := range strings.Split(string(raw), "\n") {
		name, rest, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || name != iface {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			return 0
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0
		}
		return int(level)
	}
	return 0
}
