package input

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"bongocat/internal/logging"
)

// hotplugListener watches udev netlink for input subsystem add/remove events
// so keyboards that appear after startup still get readers. Connection
// failure is non-fatal: without netlink, readers open only at start and
// reload.
type hotplugListener struct {
	logger *slog.Logger
	notify func(path string, added bool)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newHotplugListener(logger *slog.Logger, notify func(path string, added bool)) *hotplugListener {
	return &hotplugListener{logger: logger, notify: notify}
}

func (h *hotplugListener) start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		h.logger.Warn("hotplug monitoring unavailable",
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.Error(err))
		return
	}

	h.conn = conn
	h.quit = make(chan struct{})
	h.running = true

	quit := h.quit
	go h.loop(conn, quit)

	h.logger.Info("hotplug monitoring started",
		logging.String(logging.FieldEventType, "hotplug_started"))
}

func (h *hotplugListener) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	if h.quit != nil {
		close(h.quit)
		h.quit = nil
	}
	if h.conn != nil {
		_ = h.conn.Close()
		h.conn = nil
	}
	h.running = false
}

func (h *hotplugListener) loop(conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildInputMatcher())

	for {
		select {
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			h.handle(uevent)
		case err := <-errs:
			h.logger.Warn("hotplug monitor error", logging.Error(err))
		}
	}
}

// buildInputMatcher selects add/remove events from the input subsystem.
func buildInputMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "input",
		},
	})
	return rules
}

func (h *hotplugListener) handle(uevent netlink.UEvent) {
	path := deviceNodePath(uevent)
	if path == "" {
		return
	}
	added := uevent.Action == netlink.ADD
	h.logger.Debug("hotplug event",
		logging.String(logging.FieldPath, path),
		logging.String("action", string(uevent.Action)))
	h.notify(path, added)
}

// deviceNodePath resolves the /dev node for a uevent, preferring DEVNAME and
// falling back to the tail of DEVPATH. Only event nodes matter; sysfs-only
// entries like inputNN have no node and are skipped.
func deviceNodePath(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	tail := parts[len(parts)-1]
	if !strings.HasPrefix(tail, "event") {
		return ""
	}
	return "/dev/input/" + tail
}
