package reader

import (
	"crypto/tls"
	"net"
)

// tlsCertificate is a local alias so the rest of the package doesn't need
// to import crypto/tls just to pass a certificate pointer around.
type tlsCertificate = tls.Certificate

// handshake wraps conn together with the bytes already peeked off it into
// a combined reader, then performs a server-side TLS handshake gated at
// TLS 1.0, matching spec.md §4.2's minor-version floor.
func (r *Reader) handshake(conn net.Conn, cert *tlsCertificate, peeked []byte) (net.Conn, error) {
	prefixed := &prefixedConn{Conn: conn, prefix: append([]byte(nil), peeked...)}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS10,
	}

	tlsConn := tls.Server(prefixed, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, nil
	}

	r.conn = tlsConn
	r.secure = true
	r.pos, r.filled = 0, 0

	return tlsConn, nil
}

// prefixedConn is a net.Conn whose first reads are satisfied from an
// in-memory prefix (bytes already consumed from the socket while peeking)
// before falling through to the wrapped connection.
type prefixedConn struct {
	net.Conn
	prefix []byte
}

func (p *prefixedConn) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]

		return n, nil
	}

	return p.Conn.Read(b)
}
