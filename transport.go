// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"syscall"
	"time"
)

// Transport is a byte stream to one IRC server, plain or TLS (spec
// §4.1 component 1). The poll loop calls ReadInto only after
// pollset.go's unix.Poll has reported the descriptor readable; writes
// are issued directly, with no writability check, and can block.
type Transport interface {
	// FD returns the file descriptor to register with the poller.
	FD() int
	// ReadInto reads available bytes into buf, returning the count.
	ReadInto(buf []byte) (int, error)
	// WriteAll writes the entirety of b or returns an error.
	WriteAll(b []byte) error
	// Close releases the underlying connection.
	Close() error
}

// TLSConfig mirrors the subset of tls.Config the spec's connection
// lifecycle cares about (spec §4.1 "TLS enable implies...").
type TLSConfig struct {
	Enabled  bool
	Verify   bool
	ServerName string
	RootCAs  *x509.CertPool
}

// connTransport adapts a net.Conn (plain or *tls.Conn) to Transport.
// Reads/writes go through the conn itself rather than a raw syscall,
// since crypto/tls doesn't expose a safe non-blocking read/write pair
// over a bare file descriptor; FD is extracted once at dial time via
// SyscallConn purely for poll(2) registration (DESIGN.md).
type connTransport struct {
	conn net.Conn
	fd   int
	tls  *tlsHandshakeInfo
}

// tlsHandshakeInfo captures the detail the spec wants surfaced as
// history entries after a successful handshake (spec §4.1).
type tlsHandshakeInfo struct {
	Version string
	SNI     string
	Issuer  string
	Subject string
}

// DialTransport connects to addr ("host:port") and wraps the
// connection, performing a TLS handshake when cfg.Enabled.
func DialTransport(addr string, cfg TLSConfig, dialTimeout time.Duration) (Transport, *tlsHandshakeInfo, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	raw, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, nil, newCoreError(KindIO, "transport.dial", err)
	}

	fd, ferr := extractFD(raw)
	if ferr != nil {
		raw.Close()
		return nil, nil, newCoreError(KindIO, "transport.dial", ferr)
	}

	if !cfg.Enabled {
		return &connTransport{conn: raw, fd: fd}, nil, nil
	}

	tlsCfg := &tls.Config{
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: !cfg.Verify, //nolint:gosec
		RootCAs:            cfg.RootCAs,
	}
	tconn := tls.Client(raw, tlsCfg)
	if err := tconn.Handshake(); err != nil {
		raw.Close()
		return nil, nil, newCoreError(KindIO, "transport.tls_handshake", err)
	}

	info := &tlsHandshakeInfo{SNI: cfg.ServerName}
	state := tconn.ConnectionState()
	info.Version = tlsVersionName(state.Version)
	if len(state.PeerCertificates) > 0 {
		info.Issuer = state.PeerCertificates[0].Issuer.String()
		info.Subject = state.PeerCertificates[0].Subject.String()
	}

	return &connTransport{conn: tconn, fd: fd, tls: info}, info, nil
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS1.0"
	case tls.VersionTLS11:
		return "TLS1.1"
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return "unknown"
	}
}

// extractFD pulls the raw descriptor out of a net.Conn for poll(2)
// registration without taking over its I/O.
func extractFD(c net.Conn) (int, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return -1, newCoreError(KindInternal, "transport.fd", nil)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	cerr := raw.Control(func(f uintptr) { fd = int(f) })
	if cerr != nil {
		return -1, cerr
	}
	return fd, nil
}

func (c *connTransport) FD() int { return c.fd }

func (c *connTransport) ReadInto(buf []byte) (int, error) {
	n, err := c.conn.Read(buf)
	if err != nil {
		return n, newCoreError(KindIO, "transport.read", err)
	}
	return n, nil
}

// WriteAll loops until every byte of b is written or an error occurs,
// mirroring the "write-all" contract of spec §4.1.
func (c *connTransport) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := c.conn.Write(b)
		if err != nil {
			return newCoreError(KindIO, "transport.write", err)
		}
		b = b[n:]
	}
	return nil
}

func (c *connTransport) Close() error {
	return c.conn.Close()
}
