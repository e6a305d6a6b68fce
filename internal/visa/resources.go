package visa

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ListResources filters candidate resource strings down to the ones that are
// currently reachable: TCP resources must accept a connection within the
// timeout, serial resources must name an existing device node.
func ListResources(candidates []string, timeout time.Duration) []string {
	if timeout <= 0 {
		timeout = time.Second
	}
	var out []string
	for _, res := range candidates {
		parts := strings.Split(strings.TrimSpace(res), "::")
		if len(parts) < 2 {
			continue
		}
		iface := strings.ToUpper(parts[0])
		switch {
		case strings.HasPrefix(iface, "TCPIP"):
			if len(parts) < 3 {
				continue
			}
			if _, err := strconv.Atoi(parts[2]); err != nil {
				continue
			}
			conn, err := net.DialTimeout("tcp", net.JoinHostPort(parts[1], parts[2]), timeout)
			if err != nil {
				continue
			}
			conn.Close()
			out = append(out, res)
		case strings.HasPrefix(iface, "ASRL"):
			if _, err := os.Stat(parts[1]); err != nil {
				continue
			}
			out = append(out, res)
		}
	}
	return out
}

// AutoDetect picks the preferred resource from a list: the first TCPIP entry,
// or failing that the first entry. Empty input yields "".
func AutoDetect(resources []string) string {
	if len(resources) == 0 {
		return ""
	}
	for _, r := range resources {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(r)), "TCPIP") {
			return r
		}
	}
	return resources[0]
}
