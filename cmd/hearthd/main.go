// Command hearthd is the launcher: it binds the plaintext and (optionally)
// TLS listeners, wires the redirector and static file server together by
// explicit branching, and serves the admin introspection endpoints.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/dchest/uniuri"

	"github.com/hearth-http/hearth/conncontext"
	"github.com/hearth-http/hearth/connection"
	"github.com/hearth-http/hearth/log"
	"github.com/hearth-http/hearth/redirector"
	"github.com/hearth-http/hearth/stats"
	"github.com/hearth-http/hearth/staticfile"
)

const (
	plainPort      = 80
	tlsPort        = 443
	adminPlainPort = 8059
	adminTLSPort   = 8058
)

func main() {
	startBrowser := flag.Bool("start-browser", false, "open the served site in the default browser once listening")
	domain := flag.String("domain", "", "domain name to request an automatic certificate for via ACME; local self-signed otherwise")
	root := flag.String("root", "www", "directory to serve static files from")
	flag.Parse()

	logger := log.Default
	counters := stats.New()

	wwwDir, err := filepath.Abs(*root)
	if err != nil {
		logger.Error(fmt.Sprintf("resolving root directory: %s", err), 0)
		os.Exit(1)
	}

	static, err := staticfile.New(wwwDir, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("opening static file server: %s", err), 0)
		os.Exit(1)
	}

	redir := redirector.New()
	redir.SetUpgradeInsecure(true)

	if f, err := os.Open(filepath.Join(wwwDir, "..", "redirects.txt")); err == nil {
		if err := redir.Load(f, logger); err != nil {
			logger.Error(fmt.Sprintf("loading redirects.txt: %s", err), 0)
		}
		f.Close()
	}

	token := uniuri.NewLen(32)
	logger.Info(fmt.Sprintf("admin correlation token for this process: %s", token))

	adm := newAdmin(logger, counters, static, token)

	cert, err := loadCertificate(filepath.Join(wwwDir, "..", "fullchain.pem"), filepath.Join(wwwDir, "..", "privatekey.pem"))
	if err != nil {
		logger.Error(fmt.Sprintf("loading TLS certificate: %s", err), 0)
	}

	errs := make(chan error, 4)

	runListener(errs, "plain", plainPort, func() (net.Listener, error) {
		return net.Listen("tcp", portAddr(plainPort))
	}, routeHandler(redir, static, plainPort), counters, logger, nil)

	runListener(errs, "admin-plain", adminPlainPort, func() (net.Listener, error) {
		return net.Listen("tcp", portAddr(adminPlainPort))
	}, adm.Handle, counters, logger, nil)

	switch {
	case cert != nil:
		logger.Info(fmt.Sprintf("serving TLS from fullchain.pem/privatekey.pem (%s)", certFingerprint(cert)))

		runListener(errs, "tls", tlsPort, func() (net.Listener, error) {
			return net.Listen("tcp", portAddr(tlsPort))
		}, routeHandler(redir, static, tlsPort), counters, logger, cert)

		runListener(errs, "admin-tls", adminTLSPort, func() (net.Listener, error) {
			return net.Listen("tcp", portAddr(adminTLSPort))
		}, adm.Handle, counters, logger, cert)
	case *domain != "":
		cacheDir := filepath.Join(wwwDir, "..", ".autocert-cache")
		manager := autocertManager(cacheDir, *domain)
		tlsCfg := &tls.Config{GetCertificate: manager.GetCertificate}

		logger.Info(fmt.Sprintf("requesting automatic certificates for %s via ACME", *domain))

		runListener(errs, "tls", tlsPort, func() (net.Listener, error) {
			return tls.Listen("tcp", portAddr(tlsPort), tlsCfg)
		}, routeHandler(redir, static, tlsPort), counters, logger, nil)

		runListener(errs, "admin-tls", adminTLSPort, func() (net.Listener, error) {
			return tls.Listen("tcp", portAddr(adminTLSPort), tlsCfg)
		}, adm.Handle, counters, logger, nil)
	default:
		selfSignedCert, selfSignedKey, err := generateSelfSignedCert(filepath.Join(wwwDir, "..", ".autocert-cache"))
		if err != nil {
			logger.Error(fmt.Sprintf("generating local self-signed certificate: %s", err), 0)
			break
		}

		local, err := loadCertificate(selfSignedCert, selfSignedKey)
		if err != nil {
			logger.Error(fmt.Sprintf("loading generated self-signed certificate: %s", err), 0)
			break
		}

		logger.Info("no certificate and no --domain given; serving TLS with a generated local self-signed certificate")

		runListener(errs, "tls", tlsPort, func() (net.Listener, error) {
			return net.Listen("tcp", portAddr(tlsPort))
		}, routeHandler(redir, static, tlsPort), counters, logger, local)

		runListener(errs, "admin-tls", adminTLSPort, func() (net.Listener, error) {
			return net.Listen("tcp", portAddr(adminTLSPort))
		}, adm.Handle, counters, logger, local)
	}

	if *startBrowser {
		openBrowser(fmt.Sprintf("http://localhost:%d/", plainPort))
	}

	if err := <-errs; err != nil {
		logger.Error(fmt.Sprintf("listener stopped: %s", err), 0)
		os.Exit(1)
	}
}

func portAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}

// routeHandler composes the redirector and the static file server by
// explicit branching, not a middleware chain: the redirector gets first
// look at every request, and only requests it declines fall through to
// the file server.
func routeHandler(redir *redirector.Redirector, static *staticfile.Server, localPort int) connection.Handler {
	return func(ctx *conncontext.Context) error {
		if handled, err := redir.TryHandle(ctx, uint16(localPort)); handled {
			return err
		}

		return static.Handle(ctx)
	}
}

func runListener(
	errs chan<- error,
	name string,
	port int,
	open func() (net.Listener, error),
	handler connection.Handler,
	counters *stats.Counters,
	logger *log.Sink,
	cert *tls.Certificate,
) {
	listener, err := open()
	if err != nil {
		errs <- fmt.Errorf("%s listener on port %d: %w", name, port, err)
		return
	}

	pipeline := connection.New(connection.Config{
		Handler:     handler,
		Certificate: cert,
		Logger:      logger,
		Stats:       counters,
	})

	logger.Info(fmt.Sprintf("%s listening on port %d", name, port))

	go func() {
		errs <- pipeline.Serve(listener)
	}()
}

func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	_ = cmd.Start()
}
