// Package input watches Linux evdev keyboard devices and reports key presses.
// Each configured device gets its own reader goroutine; a udev netlink
// listener re-arms readers when devices are plugged or unplugged. Missing
// devices are warnings, not failures: a keyboard that appears later is picked
// up by hotplug.
package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"bongocat/internal/logging"
)

// evdev wire format: struct input_event on 64-bit Linux.
const eventSize = 24

const (
	evKey      = 0x01
	valPress   = 1
	valRepeat  = 2
	valRelease = 0
)

// Monitor owns the per-device readers and the hotplug listener.
type Monitor struct {
	onKey  func()
	logger *slog.Logger

	mu      sync.Mutex
	readers map[string]*deviceReader
	devices []string
	hotplug *hotplugListener
	running bool

	wg sync.WaitGroup
}

// New prepares a monitor that calls onKey for every key press on any watched
// device.
func New(onKey func(), logger *slog.Logger) (*Monitor, error) {
	if onKey == nil {
		return nil, fmt.Errorf("input: key callback is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		onKey:   onKey,
		logger:  logger.With(logging.String(logging.FieldComponent, "input")),
		readers: make(map[string]*deviceReader),
	}, nil
}

// Start opens readers for the given device paths and begins hotplug
// monitoring. Devices that cannot be opened are logged and skipped.
func (m *Monitor) Start(devices []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("input: already started")
	}
	m.running = true
	m.devices = append([]string(nil), devices...)
	for _, dev := range m.devices {
		m.openReaderLocked(dev)
	}

	m.hotplug = newHotplugListener(m.logger, m.onDeviceEvent)
	m.hotplug.start()
	return nil
}

// Restart swaps the watched device set. Readers for devices present in both
// sets keep running; removed devices are closed, added ones opened.
func (m *Monitor) Restart(devices []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	next := make(map[string]bool, len(devices))
	for _, dev := range devices {
		next[dev] = true
	}
	for dev, r := range m.readers {
		if !next[dev] {
			r.close()
			delete(m.readers, dev)
			m.logger.Info("stopped watching device", logging.String(logging.FieldPath, dev))
		}
	}
	for _, dev := range devices {
		if _, ok := m.readers[dev]; !ok {
			m.openReaderLocked(dev)
		}
	}
	m.devices = append([]string(nil), devices...)
}

// Stop closes every reader and the hotplug listener, then waits for all
// goroutines to exit. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	for dev, r := range m.readers {
		r.close()
		delete(m.readers, dev)
	}
	if m.hotplug != nil {
		m.hotplug.stop()
		m.hotplug = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// ActiveDevices reports the device paths with a live reader.
func (m *Monitor) ActiveDevices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.readers))
	for dev := range m.readers {
		out = append(out, dev)
	}
	return out
}

// onDeviceEvent reacts to hotplug: an added path from the configured set gets
// a reader, a removed one loses it.
func (m *Monitor) onDeviceEvent(path string, added bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	configured := false
	for _, dev := range m.devices {
		if dev == path {
			configured = true
			break
		}
	}
	if !configured {
		return
	}
	if added {
		if _, ok := m.readers[path]; !ok {
			m.logger.Info("device attached", logging.String(logging.FieldPath, path))
			m.openReaderLocked(path)
		}
		return
	}
	if r, ok := m.readers[path]; ok {
		m.logger.Info("device detached", logging.String(logging.FieldPath, path))
		r.close()
		delete(m.readers, path)
	}
}

// openReaderLocked opens dev and launches its read loop. Caller holds m.mu.
func (m *Monitor) openReaderLocked(dev string) {
	r, err := openDevice(dev)
	if err != nil {
		m.logger.Warn("cannot open input device",
			logging.String(logging.FieldPath, dev),
			logging.Error(err))
		return
	}
	m.readers[dev] = r
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.readLoop(r)
	}()
	m.logger.Info("watching input device", logging.String(logging.FieldPath, dev))
}

// deviceReader wraps one open evdev node. The descriptor is opened with
// O_NONBLOCK so the runtime poller manages it and close() unblocks a pending
// Read.
type deviceReader struct {
	path      string
	file      *os.File
	closeOnce sync.Once
}

func openDevice(path string) (*deviceReader, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("input: open %s: %w", path, err)
	}
	return &deviceReader{path: path, file: os.NewFile(uintptr(fd), path)}, nil
}

func (r *deviceReader) close() {
	r.closeOnce.Do(func() { _ = r.file.Close() })
}

// readLoop consumes input events until the device goes away or the reader is
// closed. Only key press and auto-repeat events reach the callback; releases
// and non-key events are discarded.
func (m *Monitor) readLoop(r *deviceReader) {
	buf := make([]byte, eventSize*64)
	pending := 0
	for {
		n, err := r.file.Read(buf[pending:])
		if err != nil {
			if !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.EOF) {
				m.logger.Warn("device read failed",
					logging.String(logging.FieldPath, r.path),
					logging.Error(err))
			}
			return
		}
		pending += n
		full := pending / eventSize * eventSize
		for off := 0; off < full; off += eventSize {
			m.handleEvent(buf[off : off+eventSize])
		}
		// Keep any partial trailing event for the next read.
		copy(buf, buf[full:pending])
		pending -= full
	}
}

func (m *Monitor) handleEvent(raw []byte) {
	typ := binary.LittleEndian.Uint16(raw[16:18])
	value := int32(binary.LittleEndian.Uint32(raw[20:24]))
	if typ != evKey {
		return
	}
	if value == valPress || value == valRepeat {
		m.onKey()
	}
}
