// Package lan works out the address participants on the local network use to reach
// the server.
package lan

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// InterfaceAddrs lists interface addresses; it is net.InterfaceAddrs outside tests.
type InterfaceAddrs func() ([]net.Addr, error)

// FirstIPv4 returns the first non-loopback IPv4 address, or 127.0.0.1 when none exists.
func FirstIPv4(addrs InterfaceAddrs) string {
	if addrs == nil {
		addrs = net.InterfaceAddrs
	}
	list, err := addrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range list {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "127.0.0.1"
}

// BaseURL is publicURL when set, otherwise http://<ip>:<port>.
func BaseURL(publicURL, ip string, port int) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(ip, fmt.Sprint(port)))
}

// JoinURL is the link participants open to join quizID.
func JoinURL(base, quizID string) string {
	return strings.TrimRight(base, "/") + "/join/" + url.PathEscape(quizID)
}
