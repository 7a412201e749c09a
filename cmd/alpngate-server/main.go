package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/seclink/alpngate/engine"
	"github.com/seclink/alpngate/internal/certutil"
	"github.com/seclink/alpngate/internal/cmdutil"
	"github.com/seclink/alpngate/internal/defaults"
	agversion "github.com/seclink/alpngate/internal/version"
	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/observability"
	"github.com/seclink/alpngate/observability/prom"
	"github.com/seclink/alpngate/protocol"
	"github.com/seclink/alpngate/realtime/ws"
	"github.com/seclink/alpngate/server"

	"github.com/gorilla/websocket"
)

var (
	version = "dev"
	commit  = "unknown"
)

type switchHandler struct {
	mu      sync.RWMutex
	handler http.Handler
}

func newSwitchHandler() *switchHandler {
	return &switchHandler{handler: http.NotFoundHandler()}
}

func (h *switchHandler) Set(next http.Handler) {
	if next == nil {
		next = http.NotFoundHandler()
	}
	h.mu.Lock()
	h.handler = next
	h.mu.Unlock()
}

func (h *switchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	handler.ServeHTTP(w, r)
}

type metricsController struct {
	mu       sync.Mutex
	enabled  bool
	handler  *switchHandler
	observer *observability.AtomicHandshakeObserver
}

func newMetricsController(handler *switchHandler, observer *observability.AtomicHandshakeObserver) *metricsController {
	return &metricsController{handler: handler, observer: observer}
}

func (c *metricsController) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return
	}
	reg := prom.NewRegistry()
	c.handler.Set(prom.Handler(reg))
	c.observer.Set(prom.NewHandshakeObserver(reg))
	c.enabled = true
}

func (c *metricsController) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.handler.Set(nil)
	c.observer.Set(observability.NoopHandshakeObserver)
	c.enabled = false
}

func validateTLSFiles(certFile string, keyFile string) error {
	if certFile == "" && keyFile == "" {
		return nil
	}
	if certFile == "" || keyFile == "" {
		return errors.New("tls requires both --tls-cert-file and --tls-key-file")
	}
	return nil
}

func parseVersionBound(s string) (negotiate.Version, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return negotiate.ParseVersion(strings.TrimSpace(s))
}

type ready struct {
	Version   string   `json:"version"`
	Listen    string   `json:"listen"`
	URL       string   `json:"url"`
	Protocols []string `json:"protocols"`
	Engine    string   `json:"engine"`
	Secure    bool     `json:"secure"`
	Metrics   string   `json:"metrics_url,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)

	listen := cmdutil.EnvString("ALPNGATE_LISTEN", "127.0.0.1:0")
	protocols := cmdutil.EnvString("ALPNGATE_PROTOCOLS", "http/1.1")
	tlsCertFile := cmdutil.EnvString("ALPNGATE_TLS_CERT_FILE", "")
	tlsKeyFile := cmdutil.EnvString("ALPNGATE_TLS_KEY_FILE", "")
	metricsListen := cmdutil.EnvString("ALPNGATE_METRICS_LISTEN", "")
	minTLS := cmdutil.EnvString("ALPNGATE_MIN_TLS", "")
	maxTLS := cmdutil.EnvString("ALPNGATE_MAX_TLS", "")
	allowedOrigins := cmdutil.SplitCSVEnv("ALPNGATE_ALLOW_ORIGIN")

	autoCert, err := cmdutil.EnvBool("ALPNGATE_AUTO_CERT", false)
	if err != nil {
		fmt.Fprintf(stderr, "invalid ALPNGATE_AUTO_CERT: %v\n", err)
		return 2
	}
	allowNoOrigin, err := cmdutil.EnvBool("ALPNGATE_ALLOW_NO_ORIGIN", true)
	if err != nil {
		fmt.Fprintf(stderr, "invalid ALPNGATE_ALLOW_NO_ORIGIN: %v\n", err)
		return 2
	}
	handshakeTimeout, err := cmdutil.EnvDuration("ALPNGATE_HANDSHAKE_TIMEOUT", defaults.HandshakeTimeout)
	if err != nil {
		fmt.Fprintf(stderr, "invalid ALPNGATE_HANDSHAKE_TIMEOUT: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("alpngate-server", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := false
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&listen, "listen", listen, "listen address (env: ALPNGATE_LISTEN)")
	fs.StringVar(&protocols, "protocols", protocols, "comma-separated protocol set, e.g. h2,http/1.1 (env: ALPNGATE_PROTOCOLS)")
	fs.StringVar(&tlsCertFile, "tls-cert-file", tlsCertFile, "TLS certificate file (env: ALPNGATE_TLS_CERT_FILE)")
	fs.StringVar(&tlsKeyFile, "tls-key-file", tlsKeyFile, "TLS private key file (env: ALPNGATE_TLS_KEY_FILE)")
	fs.BoolVar(&autoCert, "auto-cert", autoCert, "generate a self-signed certificate at startup (env: ALPNGATE_AUTO_CERT)")
	fs.StringVar(&metricsListen, "metrics-listen", metricsListen, "listen address for metrics server (empty disables) (env: ALPNGATE_METRICS_LISTEN)")
	fs.StringVar(&minTLS, "min-tls", minTLS, "minimum TLS version, e.g. 1.2 (env: ALPNGATE_MIN_TLS)")
	fs.StringVar(&maxTLS, "max-tls", maxTLS, "maximum TLS version, e.g. 1.3 (env: ALPNGATE_MAX_TLS)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		_, _ = fmt.Fprintln(stdout, agversion.String(version, commit))
		return 0
	}

	usageErr := func(msg string) int {
		if msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		fs.Usage()
		return 2
	}

	if err := validateTLSFiles(tlsCertFile, tlsKeyFile); err != nil {
		return usageErr(err.Error())
	}
	set, err := protocol.ParseSet(strings.Split(protocols, ","))
	if err != nil {
		return usageErr(fmt.Sprintf("invalid --protocols: %v", err))
	}
	minV, err := parseVersionBound(minTLS)
	if err != nil {
		return usageErr(fmt.Sprintf("invalid --min-tls: %v", err))
	}
	maxV, err := parseVersionBound(maxTLS)
	if err != nil {
		return usageErr(fmt.Sprintf("invalid --max-tls: %v", err))
	}

	observer := observability.NewAtomicHandshakeObserver()

	builder := server.New().
		Addr(listen).
		Protocol(set.Protocols()...).
		TLSVersions(minV, maxV).
		Observer(observer).
		HandshakeTimeout(handshakeTimeout).
		Handler(newHandler(allowedOrigins, allowNoOrigin, logger))

	secure := false
	switch {
	case tlsCertFile != "":
		cert, err := certutil.LoadPair(tlsCertFile, tlsKeyFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		builder.Secure(engine.Material{Certificates: []tls.Certificate{cert}})
		secure = true
	case autoCert:
		certPEM, keyPEM, err := certutil.SelfSigned([]string{"localhost", "127.0.0.1"}, 24*time.Hour)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if dir := cmdutil.EnvString("ALPNGATE_AUTO_CERT_DIR", ""); dir != "" {
			// Persist the generated material so external clients can trust it.
			if _, _, err := certutil.WritePair(dir, certPEM, keyPEM); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		}
		cert, err := certutil.Pair(certPEM, keyPEM)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		builder.Secure(engine.Material{Certificates: []tls.Certificate{cert}})
		secure = true
	}

	bound, err := builder.Bind(context.Background())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var metrics *metricsController
	var metricsSrv *http.Server
	var metricsLn net.Listener
	if metricsListen != "" {
		metricsMux := http.NewServeMux()
		metricsHandler := newSwitchHandler()
		metricsMux.Handle("/metrics", metricsHandler)
		metrics = newMetricsController(metricsHandler, observer)
		metrics.Enable()

		metricsLn, err = net.Listen("tcp", metricsListen)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		metricsSrv = &http.Server{Handler: metricsMux}
		go func() {
			if err := metricsSrv.Serve(metricsLn); err != nil && err != http.ErrServerClosed {
				logger.Fatal(err)
			}
		}()
	}

	out := ready{
		Version:   version,
		Listen:    bound.Addr().String(),
		URL:       bound.URL(),
		Protocols: bound.Protocols(),
		Engine:    string(bound.Engine()),
		Secure:    secure,
	}
	if metricsLn != nil {
		out.Metrics = "http://" + metricsLn.Addr().String() + "/metrics"
	}
	_ = json.NewEncoder(stdout).Encode(out)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, append([]os.Signal{syscall.SIGINT, syscall.SIGTERM}, metricsToggleSignals()...)...)

	for {
		s := <-sig
		switch {
		case isMetricsEnable(s):
			if metrics == nil {
				logger.Printf("metrics server disabled (missing --metrics-listen)")
				continue
			}
			metrics.Enable()
			logger.Printf("metrics enabled")
		case isMetricsDisable(s):
			if metrics == nil {
				continue
			}
			metrics.Disable()
			logger.Printf("metrics disabled")
		default:
			ctx, cancel := context.WithTimeout(context.Background(), defaults.ShutdownTimeout)
			_ = bound.Shutdown(ctx)
			if metricsSrv != nil {
				_ = metricsSrv.Shutdown(ctx)
			}
			cancel()
			return 0
		}
	}
}

func newHandler(allowedOrigins []string, allowNoOrigin bool, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		proto := r.Proto
		if r.TLS != nil && r.TLS.NegotiatedProtocol != "" {
			proto = r.TLS.NegotiatedProtocol
		}
		fmt.Fprintf(w, "alpngate %s\n", proto)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Upgrade(w, r, ws.UpgradeOptions{
			AllowedOrigins: allowedOrigins,
			AllowNoOrigin:  allowNoOrigin,
		})
		if err != nil {
			logger.Printf("ws upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage(r.Context())
			if err != nil {
				return
			}
			if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
				continue
			}
			if err := conn.WriteMessage(r.Context(), mt, msg); err != nil {
				return
			}
		}
	})
	return mux
}
