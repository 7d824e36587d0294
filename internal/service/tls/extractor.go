// Package tls recovers the client certificate presented for a request,
// either from the request's own TLS session or from headers set by a
// TLS-terminating proxy (Envoy XFCC, Nginx escaped-cert header).
package tls

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
)

// Peer is what the transport hands to the decision engine: whether the
// channel is secured and the certificate in DER encoding, if any.
type Peer struct {
	ChannelSecured bool
	RawCertificate []byte
}

// Extractor recovers the peer certificate from a request.
type Extractor struct {
	cfg               config.ExtractionConfig
	trustedProxyCIDRs []*net.IPNet
	log               *zap.Logger
}

// NewExtractor creates an extractor from configuration.
func NewExtractor(cfg config.ExtractionConfig, log *zap.Logger) *Extractor {
	e := &Extractor{
		cfg: cfg,
		log: log.Named("cert-extractor"),
	}

	for _, cidr := range cfg.TrustedProxyCIDRs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			ip := net.ParseIP(cidr)
			if ip == nil {
				e.log.Warn("invalid trusted proxy CIDR, skipping",
					zap.String("cidr", cidr))
				continue
			}
			mask := net.CIDRMask(32, 32)
			if ip.To4() == nil {
				mask = net.CIDRMask(128, 128)
			}
			ipNet = &net.IPNet{IP: ip, Mask: mask}
		}
		e.trustedProxyCIDRs = append(e.trustedProxyCIDRs, ipNet)
	}

	return e
}

// Extract recovers the peer certificate for the request. The request's own
// TLS session is authoritative; forwarded headers are consulted only when
// the direct session carries no certificate and the peer is a trusted
// proxy.
func (e *Extractor) Extract(r *http.Request) Peer {
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		return Peer{
			ChannelSecured: true,
			RawCertificate: r.TLS.PeerCertificates[0].Raw,
		}
	}

	if !e.isTrustedProxy(r.RemoteAddr) {
		return Peer{ChannelSecured: r.TLS != nil}
	}

	if e.cfg.XFCC.Enabled {
		if der := e.extractFromXFCC(r); der != nil {
			return Peer{ChannelSecured: true, RawCertificate: der}
		}
	}

	if e.cfg.CertHeader.Enabled {
		if der := e.extractFromHeader(r); der != nil {
			return Peer{ChannelSecured: true, RawCertificate: der}
		}
	}

	// A forwarded-proto assertion from a trusted proxy secures the channel
	// even without a certificate
	secured := r.TLS != nil
	if proto := r.Header.Get("X-Forwarded-Proto"); strings.EqualFold(proto, "https") {
		secured = true
	}

	return Peer{ChannelSecured: secured}
}

// isTrustedProxy checks if the remote address is from a trusted proxy.
func (e *Extractor) isTrustedProxy(remoteAddr string) bool {
	if len(e.trustedProxyCIDRs) == 0 {
		return true // No restriction if no CIDRs configured
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, cidr := range e.trustedProxyCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}

	return false
}

// extractFromXFCC pulls the Cert element out of an X-Forwarded-Client-Cert
// header. XFCC format:
// Hash=<hash>;Cert="<url-encoded PEM>";Subject="<subject>";URI=<uri>
func (e *Extractor) extractFromXFCC(r *http.Request) []byte {
	xfcc := r.Header.Get(e.cfg.XFCC.Header)
	if xfcc == "" {
		return nil
	}

	for key, value := range parseXFCCElements(xfcc) {
		if strings.EqualFold(key, "cert") {
			der, err := decodeForwardedCert(value)
			if err != nil {
				e.log.Warn("unparseable certificate in XFCC header",
					zap.Error(err))
				return nil
			}
			return der
		}
	}

	return nil
}

// extractFromHeader pulls a certificate from the configured single header.
func (e *Extractor) extractFromHeader(r *http.Request) []byte {
	value := r.Header.Get(e.cfg.CertHeader.Name)
	if value == "" {
		return nil
	}

	der, err := decodeForwardedCert(value)
	if err != nil {
		e.log.Warn("unparseable certificate in header",
			zap.String("header", e.cfg.CertHeader.Name),
			zap.Error(err))
		return nil
	}
	return der
}

// decodeForwardedCert turns a forwarded certificate value into DER bytes.
// Proxies commonly URL-escape the PEM; some send base64 DER instead. The
// result is checked to parse as a certificate so header garbage never
// reaches the decision engine as a malformed certificate.
func decodeForwardedCert(value string) ([]byte, error) {
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	value = strings.TrimSpace(value)

	var der []byte
	if block, _ := pem.Decode([]byte(value)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, err
		}
		der = decoded
	}

	if _, err := x509.ParseCertificate(der); err != nil {
		return nil, err
	}
	return der, nil
}

// parseXFCCElements parses the XFCC header into key-value pairs.
// Handles quoted values; the last element of the header (the proxy nearest
// to this service) wins for duplicate keys.
func parseXFCCElements(xfcc string) map[string]string {
	elements := make(map[string]string)

	for _, part := range splitXFCC(xfcc) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, "=")
		if idx == -1 {
			continue
		}

		key := strings.TrimSpace(part[:idx])
		value := strings.TrimSpace(part[idx+1:])

		// Remove quotes if present
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}

		elements[key] = value
	}

	return elements
}

// splitXFCC splits the XFCC header respecting quoted values. Semicolons
// separate pairs within an element; commas separate the elements of a
// multi-hop header. Both split here, so later elements overwrite earlier
// ones in parseXFCCElements.
func splitXFCC(xfcc string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(xfcc); i++ {
		c := xfcc[i]
		switch c {
		case '"':
			inQuotes = !inQuotes
			current.WriteByte(c)
		case ';', ',':
			if inQuotes {
				current.WriteByte(c)
			} else {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
