package call

import (
	"net"
	"strings"
)

var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp"}

// ShouldForceRelay reports whether this host looks like it sits behind a VPN
// tunnel or carrier-grade NAT, where direct candidates rarely connect.
func ShouldForceRelay() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	return behindTunnel(ifaces, func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() })
}

func behindTunnel(ifaces []net.Interface, addrs func(net.Interface) ([]net.Addr, error)) bool {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		name := strings.ToLower(iface.Name)
		for _, tunnel := range tunnelNames {
			if strings.Contains(name, tunnel) {
				return true
			}
		}

		list, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, addr := range list {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if cgnat.Contains(ip) {
				return true
			}
		}
	}
	return false
}
