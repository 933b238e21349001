package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
)

const CurrentVersion = 1

type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolSOCKS5 Protocol = "socks5"
	ProtocolSOCKS4 Protocol = "socks4"
)

var Protocols = []Protocol{ProtocolHTTP, ProtocolSOCKS5, ProtocolSOCKS4}

// ParseProtocol accepts schemes and labels in any case ("http", "SOCKS5", "Socks4").
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http":
		return ProtocolHTTP, nil
	case "socks5":
		return ProtocolSOCKS5, nil
	case "socks4":
		return ProtocolSOCKS4, nil
	}
	return "", fmt.Errorf("unknown proxy protocol %q (want http, socks5 or socks4)", s)
}

// Scheme is the URL scheme used in the proxy environment variables. It is
// always lowercase, even for a Protocol built from a label.
func (p Protocol) Scheme() string {
	if c, err := ParseProtocol(string(p)); err == nil {
		return string(c)
	}
	return strings.ToLower(string(p))
}

func (p Protocol) Label() string { return strings.ToUpper(string(p)) }

func (p Protocol) String() string { return p.Label() }

func (p *Protocol) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	parsed, err := ParseProtocol(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type ProxyConfig struct {
	Protocol Protocol `json:"protocol"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
}

func (c ProxyConfig) Validate() error {
	canonical, err := ParseProtocol(string(c.Protocol))
	if err != nil {
		return err
	}
	if canonical != c.Protocol {
		return fmt.Errorf("proxy protocol %q is not canonical (want %q)", c.Protocol, canonical)
	}
	host := c.Host
	if host == "" {
		return fmt.Errorf("proxy host is empty")
	}
	if strings.IndexFunc(host, unicode.IsSpace) >= 0 {
		return fmt.Errorf("proxy host %q contains whitespace", host)
	}
	if strings.ContainsAny(host, "/?#@[]") {
		return fmt.Errorf("proxy host %q is not a host name or address", host)
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return fmt.Errorf("proxy host %q is not a valid IPv6 address", host)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("proxy port %d out of range (1-65535)", c.Port)
	}
	if _, _, err := net.SplitHostPort(c.Address()); err != nil {
		return fmt.Errorf("proxy address %q: %w", c.Address(), err)
	}
	return nil
}

// Address is host:port, with IPv6 literals bracketed.
func (c ProxyConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ProxyConfig) URL() string {
	return c.Protocol.Scheme() + "://" + c.Address()
}

type Profile struct {
	Name string `json:"name"`
	ProxyConfig
}

// UnmarshalJSON also reads the older profile layout, where the address is
// stored as "ip" and the port as a decimal string.
func (p *Profile) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Protocol Protocol        `json:"protocol"`
		Host     string          `json:"host"`
		IP       string          `json:"ip"`
		Port     json.RawMessage `json:"port"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	port, err := decodePort(raw.Port)
	if err != nil {
		return err
	}
	host := strings.TrimSpace(raw.Host)
	if host == "" {
		host = strings.TrimSpace(raw.IP)
	}
	*p = Profile{
		Name:        raw.Name,
		ProxyConfig: ProxyConfig{Protocol: raw.Protocol, Host: host, Port: port},
	}
	return nil
}

func decodePort(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("port: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	return n, nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is empty")
	}
	if err := p.ProxyConfig.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

type file struct {
	Version  int       `json:"version"`
	Profiles []Profile `json:"profiles"`
}
