package scan

import (
	"fmt"
	"net"
)

// LocalNetwork derives the CIDR range to scan from the host's default
// route, assuming a /24. It determines the outbound interface address
// the same way the devices do when registering mDNS: by opening a UDP
// socket toward a public resolver (no packet is sent).
func LocalNetwork() (string, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("failed to determine local address: %w", err)
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}

	ip := addr.IP.To4()
	if ip == nil {
		return "", fmt.Errorf("local address %s is not IPv4", addr.IP)
	}

	return fmt.Sprintf("%d.%d.%d.0/24", ip[0], ip[1], ip[2]), nil
}

// Hosts expands a CIDR range into its host addresses. The network and
// broadcast addresses are excluded for ranges wider than /31; a /32
// yields its single address.
func Hosts(cidr string) ([]string, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid network range %q: %w", cidr, err)
	}

	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("network range %q is not IPv4", cidr)
	}

	ones, bits := ipNet.Mask.Size()
	total := 1 << (bits - ones)

	hosts := make([]string, 0, total)
	current := make(net.IP, len(v4))
	copy(current, v4.Mask(ipNet.Mask))

	for i := 0; i < total; i++ {
		// Skip network (first) and broadcast (last) for normal subnets.
		if total > 2 && (i == 0 || i == total-1) {
			incrementIP(current)
			continue
		}
		hosts = append(hosts, current.String())
		incrementIP(current)
	}

	return hosts, nil
}

func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}
