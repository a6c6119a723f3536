// Package pairing exposes what the app needs to find the bridge: the LAN host
// and port, the same payload a pairing QR code carries.
package pairing

import (
	"net"
)

// Payload is the pairing document scanned or typed into the app.
type Payload struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// probeAddr is only used to pick the outbound interface, nothing is sent.
const probeAddr = "8.8.8.8:80"

// LANAddress returns the address of the interface used for outbound traffic,
// or fallback when there is no route.
func LANAddress(fallback string) string {
	conn, err := net.Dial("udp", probeAddr)
	if err != nil {
		return fallback
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return fallback
	}
	return addr.IP.String()
}

// NewPayload builds the pairing payload for a listener bound to host:port.
// A wildcard host is replaced by the LAN address.
func NewPayload(host string, port int) Payload {
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = LANAddress(host)
	}
	return Payload{Host: host, Port: port}
}
