// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/livinlefevreloca/panelclock/internal/device"
	"github.com/livinlefevreloca/panelclock/internal/weather"
)

// ErrInjected is the default failure returned by fakes told to fail
var ErrInjected = errors.New("testutil: injected failure")

// FakeRTC is a settable clock
type FakeRTC struct {
	mu     sync.Mutex
	now    device.DateTime
	writes []device.DateTime
	setErr error
}

// NewFakeRTC creates a clock reading start
func NewFakeRTC(start device.DateTime) *FakeRTC {
	return &FakeRTC{now: start}
}

func (f *FakeRTC) Now() device.DateTime {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeRTC) Set(d device.DateTime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.now = d
	f.writes = append(f.writes, d)
	return nil
}

// Advance replaces the current reading without recording a write
func (f *FakeRTC) Advance(d device.DateTime) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = d
}

// SetError makes subsequent Set calls fail with err
func (f *FakeRTC) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

// Writes returns every value passed to Set
func (f *FakeRTC) Writes() []device.DateTime {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]device.DateTime(nil), f.writes...)
}

// FakeNetworkTime returns a fixed time or a failure
type FakeNetworkTime struct {
	mu    sync.Mutex
	value device.DateTime
	err   error
	calls int
}

func (f *FakeNetworkTime) Now(ctx context.Context) (device.DateTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return device.DateTime{}, f.err
	}
	return f.value, nil
}

// Succeed makes subsequent calls return d
func (f *FakeNetworkTime) Succeed(d device.DateTime) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value, f.err = d, nil
}

// Fail makes subsequent calls return err
func (f *FakeNetworkTime) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns how many times Now was called
func (f *FakeNetworkTime) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeWiFi returns a settable status
type FakeWiFi struct {
	mu   sync.Mutex
	info device.WiFiInfo
	err  error
}

func (f *FakeWiFi) Status(ctx context.Context) (device.WiFiInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return device.WiFiInfo{}, f.err
	}
	return f.info, nil
}

// Set makes subsequent calls return info
func (f *FakeWiFi) Set(info device.WiFiInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info, f.err = info, nil
}

// Fail makes subsequent calls return err
func (f *FakeWiFi) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SensorStage names the sensor step a FakeSensor fails at
type SensorStage int

const (
	StageNone SensorStage = iota
	StageStart
	StageWait
	StageRead
)

// FakeSensor returns a settable reading and can fail at any stage
type FakeSensor struct {
	mu      sync.Mutex
	reading device.Reading
	failAt  SensorStage
}

func (f *FakeSensor) Start(ctx context.Context) error     { return f.stage(StageStart) }
func (f *FakeSensor) WaitReady(ctx context.Context) error { return f.stage(StageWait) }

func (f *FakeSensor) Read(ctx context.Context) (device.Reading, error) {
	if err := f.stage(StageRead); err != nil {
		return device.Reading{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading, nil
}

func (f *FakeSensor) stage(s SensorStage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == s {
		return errors.Wrapf(ErrInjected, "sensor stage %d", s)
	}
	return nil
}

// Set makes subsequent reads return r and clears any failure
func (f *FakeSensor) Set(r device.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading, f.failAt = r, StageNone
}

// FailAt makes the given stage fail
func (f *FakeSensor) FailAt(s SensorStage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = s
}

// FakeFetcher returns a settable body and records requested URLs
type FakeFetcher struct {
	mu   sync.Mutex
	body string
	err  error
	urls []string
}

func (f *FakeFetcher) Get(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

// Respond makes subsequent calls return body
func (f *FakeFetcher) Respond(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, nil
}

// Fail makes subsequent calls return err
func (f *FakeFetcher) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// URLs returns every requested URL
func (f *FakeFetcher) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

// DisplayCall is one setter invocation on a RecordingDisplay
type DisplayCall struct {
	Method string
	Value  string
}

// RecordingDisplay records every setter call
type RecordingDisplay struct {
	mu    sync.Mutex
	calls []DisplayCall
}

func (d *RecordingDisplay) record(method string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, DisplayCall{Method: method, Value: fmt.Sprint(value)})
}

func (d *RecordingDisplay) SetSSID(text string)              { d.record("SetSSID", text) }
func (d *RecordingDisplay) SetTime(t device.DateTime)        { d.record("SetTime", t) }
func (d *RecordingDisplay) SetDate(t device.DateTime)        { d.record("SetDate", t) }
func (d *RecordingDisplay) SetIndoorTemperature(c float64)   { d.record("SetIndoorTemperature", c) }
func (d *RecordingDisplay) SetIndoorHumidity(p float64)      { d.record("SetIndoorHumidity", p) }
func (d *RecordingDisplay) SetOutdoorTemperature(c float64)  { d.record("SetOutdoorTemperature", c) }
func (d *RecordingDisplay) SetOutdoorIcon(icon weather.Icon) { d.record("SetOutdoorIcon", icon) }
func (d *RecordingDisplay) SetOutdoorCity(city string)       { d.record("SetOutdoorCity", city) }

// Calls returns every recorded call in order
func (d *RecordingDisplay) Calls() []DisplayCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DisplayCall(nil), d.calls...)
}

// CallsTo returns the values passed to method, in order
func (d *RecordingDisplay) CallsTo(method string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, c := range d.calls {
		if c.Method == method {
			out = append(out, c.Value)
		}
	}
	return out
}

// Reset forgets recorded calls
func (d *RecordingDisplay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}
