// Package netaddr discovers a reachable address for remote players.
//
// Detection prefers the tailscale CLI and falls back to scanning network
// interfaces for a Tailscale-range IPv4 address. The detector re-checks
// periodically because the tunnel can come up after the server starts.
package netaddr

import (
	"context"
	"log"
	"net"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"
)

// redetectInterval is how often the background loop re-runs detection.
const redetectInterval = 5 * time.Second

var tailscaleIPPattern = regexp.MustCompile(`^100\.\d+\.\d+\.\d+$`)

// Detector holds the most recently discovered address. Safe for concurrent
// use.
type Detector struct {
	mu sync.RWMutex
	ip string

	// runCommand and listInterfaces are swappable in tests.
	runCommand     func() (string, error)
	listInterfaces interfaceLister
}

// NewDetector creates a detector; call Detect or Run to populate it.
func NewDetector() *Detector {
	return &Detector{
		runCommand: func() (string, error) {
			out, err := exec.Command("tailscale", "ip", "-4").Output()
			return string(out), err
		},
		listInterfaces: net.Interfaces,
	}
}

// Current returns the discovered IP, or false when none is known.
func (d *Detector) Current() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ip, d.ip != ""
}

// Detect runs one detection pass and reports whether the address changed.
func (d *Detector) Detect() bool {
	ip := d.fromCommand()
	if ip == "" {
		ip = fromInterfaces(d.listInterfaces)
	}
	if ip == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if ip == d.ip {
		return false
	}
	d.ip = ip
	return true
}

// Run re-detects on a fixed interval until the context is cancelled.
func (d *Detector) Run(ctx context.Context) {
	if d.Detect() {
		if ip, ok := d.Current(); ok {
			log.Printf("detected reachable address: %s", ip)
		}
	}

	ticker := time.NewTicker(redetectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.Detect() {
				if ip, ok := d.Current(); ok {
					log.Printf("reachable address updated: %s", ip)
				}
			}
		}
	}
}

// fromCommand asks the tailscale CLI for the node address.
func (d *Detector) fromCommand() string {
	out, err := d.runCommand()
	if err != nil {
		// CLI missing or daemon down; the interface scan may still work.
		return ""
	}
	return parseCommandOutput(out)
}

// parseCommandOutput extracts the first Tailscale-range IPv4 address from CLI
// output.
func parseCommandOutput(out string) string {
	for _, line := range strings.Split(out, "\n") {
		ip := strings.TrimSpace(line)
		if tailscaleIPPattern.MatchString(ip) {
			return ip
		}
	}
	return ""
}

// interfaceLister makes the interface source injectable for tests.
type interfaceLister func() ([]net.Interface, error)

// fromInterfaces scans for an IPv4 address in the Tailscale CGNAT range on an
// interface that looks like a tunnel.
func fromInterfaces(list interfaceLister) string {
	ifaces, err := list()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if !isTunnelInterface(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 != nil && tailscaleIPPattern.MatchString(ip4.String()) {
				return ip4.String()
			}
		}
	}
	return ""
}

// isTunnelInterface matches the names Tailscale uses across platforms.
func isTunnelInterface(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "tailscale") || strings.HasPrefix(lower, "utun")
}
