package health

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/baaaaaaaka/rproxy/internal/config"
)

// Checker tests a proxy endpoint. With an empty Target it only checks that
// the proxy accepts TCP connections; otherwise it asks the proxy to open a
// tunnel to Target using the profile's protocol.
type Checker struct {
	Timeout time.Duration
	Target  string
}

const defaultTimeout = 3 * time.Second

func (c Checker) Check(ctx context.Context, cfg config.ProxyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := &net.Dialer{}
	if c.Target == "" {
		conn, err := d.DialContext(ctx, "tcp", cfg.Address())
		if err != nil {
			return fmt.Errorf("connect to proxy %s: %w", cfg.Address(), err)
		}
		return conn.Close()
	}

	if _, _, err := net.SplitHostPort(c.Target); err != nil {
		return fmt.Errorf("invalid target %q: %w", c.Target, err)
	}

	var err error
	switch cfg.Protocol {
	case config.ProtocolHTTP:
		err = checkHTTPConnect(ctx, d, cfg.Address(), c.Target)
	case config.ProtocolSOCKS5:
		err = checkSOCKS5(ctx, d, cfg.Address(), c.Target)
	case config.ProtocolSOCKS4:
		err = checkSOCKS4(ctx, d, cfg.Address(), c.Target)
	default:
		err = fmt.Errorf("unsupported protocol %q", cfg.Protocol)
	}
	if err != nil {
		return fmt.Errorf("%s tunnel via %s to %s: %w", cfg.Protocol.Label(), cfg.Address(), c.Target, err)
	}
	return nil
}

func checkHTTPConnect(ctx context.Context, d *net.Dialer, proxyAddr, target string) error {
	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	setDeadline(ctx, conn)

	if _, err := fmt.Fprintf(conn, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", target, target); err != nil {
		return err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: http.MethodConnect})
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func checkSOCKS5(ctx context.Context, d *net.Dialer, proxyAddr, target string) error {
	dialer, err := xproxy.SOCKS5("tcp", proxyAddr, nil, d)
	if err != nil {
		return err
	}
	cd, ok := dialer.(xproxy.ContextDialer)
	if !ok {
		return errors.New("socks5 dialer does not support contexts")
	}
	conn, err := cd.DialContext(ctx, "tcp", target)
	if err != nil {
		return err
	}
	return conn.Close()
}

// SOCKS4 carries only IPv4 destinations, so target names are resolved here.
func checkSOCKS4(ctx context.Context, d *net.Dialer, proxyAddr, target string) error {
	host, portStr, _ := net.SplitHostPort(target)
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid target port %q", portStr)
	}
	ip, err := resolveIPv4(ctx, host)
	if err != nil {
		return err
	}

	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	setDeadline(ctx, conn)

	req := make([]byte, 0, 9)
	req = append(req, 0x04, 0x01)
	req = binary.BigEndian.AppendUint16(req, uint16(port))
	req = append(req, ip...)
	req = append(req, 0x00) // empty user id
	if _, err := conn.Write(req); err != nil {
		return err
	}

	resp := make([]byte, 8)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return err
	}
	if resp[0] != 0x00 {
		return fmt.Errorf("malformed socks4 reply version %d", resp[0])
	}
	if resp[1] != 0x5a {
		return fmt.Errorf("socks4 request rejected (code 0x%02x)", resp[1])
	}
	return nil
}

func resolveIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("socks4 cannot reach IPv6 address %s", host)
	}
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no IPv4 address for %s", host)
	}
	return addrs[0].To4(), nil
}

func setDeadline(ctx context.Context, conn net.Conn) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
}
