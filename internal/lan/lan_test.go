package lan

import (
	"errors"
	"net"
	"testing"
)

func addrs(list ...net.Addr) InterfaceAddrs {
	return func() ([]net.Addr, error) { return list, nil }
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestFirstIPv4SkipsLoopbackAndIPv6(t *testing.T) {
	got := FirstIPv4(addrs(ipNet("127.0.0.1"), ipNet("fe80::1"), ipNet("2001:db8::1"), ipNet("169.254.10.1"), ipNet("192.168.1.20"), ipNet("10.0.0.5")))
	if got != "192.168.1.20" {
		t.Fatalf("expected 192.168.1.20, got %s", got)
	}
}

func TestFirstIPv4FallsBackToLoopback(t *testing.T) {
	if got := FirstIPv4(addrs(ipNet("127.0.0.1"))); got != "127.0.0.1" {
		t.Fatalf("expected loopback fallback, got %s", got)
	}
	failing := func() ([]net.Addr, error) { return nil, errors.New("no interfaces") }
	if got := FirstIPv4(failing); got != "127.0.0.1" {
		t.Fatalf("expected loopback fallback on error, got %s", got)
	}
}

func TestJoinURL(t *testing.T) {
	base := BaseURL("", "192.168.1.20", 3000)
	if got := JoinURL(base, "7"); got != "http://192.168.1.20:3000/join/7" {
		t.Fatalf("unexpected join url %s", got)
	}
	if got := JoinURL(BaseURL("https://quiz.example.org/", "", 0), "a b"); got != "https://quiz.example.org/join/a%20b" {
		t.Fatalf("unexpected public join url %s", got)
	}
}
