// alpngate-probe dials a TLS endpoint with a configured protocol set and
// reports the negotiated application protocol, or the classified handshake
// failure, as a single JSON line.
package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/seclink/alpngate/agerrors"
	"github.com/seclink/alpngate/client"
	"github.com/seclink/alpngate/engine"
	"github.com/seclink/alpngate/internal/defaults"
	agversion "github.com/seclink/alpngate/internal/version"
	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/protocol"
)

var (
	version = "dev"
	commit  = "unknown"
)

type report struct {
	Target        string   `json:"target"`
	Advertisement []string `json:"advertisement"`
	Negotiated    string   `json:"negotiated,omitempty"`
	TLSVersion    string   `json:"tls_version,omitempty"`
	Engine        string   `json:"engine,omitempty"`
	Error         string   `json:"error,omitempty"`
	Code          string   `json:"code,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("alpngate-probe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := fs.Bool("version", false, "print version and exit")
	target := fs.String("target", "", "host:port to probe (required)")
	protocols := fs.String("protocols", "h2,http/1.1", "comma-separated protocol set to offer")
	minTLS := fs.String("min-tls", "", "minimum TLS version, e.g. 1.2")
	maxTLS := fs.String("max-tls", "", "maximum TLS version, e.g. 1.3")
	caFile := fs.String("ca-file", "", "PEM file with roots to trust (default: system pool)")
	insecure := fs.Bool("insecure", false, "skip certificate verification")
	serverName := fs.String("server-name", "", "override SNI/verification name")
	timeout := fs.Duration("timeout", defaults.ConnectTimeout, "dial+handshake timeout")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		_, _ = fmt.Fprintln(stdout, agversion.String(version, commit))
		return 0
	}
	if *target == "" {
		fmt.Fprintln(stderr, "missing --target")
		fs.Usage()
		return 2
	}

	set, err := protocol.ParseSet(strings.Split(*protocols, ","))
	if err != nil {
		fmt.Fprintf(stderr, "invalid --protocols: %v\n", err)
		return 2
	}
	minV, maxV, err := versionBounds(*minTLS, *maxTLS)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	material := engine.Material{InsecureSkipVerify: *insecure}
	if *caFile != "" {
		pem, err := os.ReadFile(*caFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			fmt.Fprintf(stderr, "no certificates in %s\n", *caFile)
			return 2
		}
		material.RootCAs = pool
	}

	builder := client.New().
		Protocol(set.Protocols()...).
		Secure(material).
		TLSVersions(minV, maxV).
		ConnectTimeout(*timeout)
	if *serverName != "" {
		builder.ServerName(*serverName)
	}

	out := report{
		Target:        *target,
		Advertisement: protocol.ResolveALPN(set),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()
	sess, err := builder.Connect(ctx, *target)
	if err != nil {
		out.Error = err.Error()
		out.Code = string(agerrors.CodeOf(err))
		_ = json.NewEncoder(stdout).Encode(out)
		return 1
	}
	defer sess.Close()

	out.Negotiated = string(sess.Protocol())
	out.TLSVersion = sess.TLSVersion().String()
	out.Engine = string(sess.Engine())
	_ = json.NewEncoder(stdout).Encode(out)
	return 0
}

func versionBounds(minS, maxS string) (negotiate.Version, negotiate.Version, error) {
	var minV, maxV negotiate.Version
	var err error
	if strings.TrimSpace(minS) != "" {
		if minV, err = negotiate.ParseVersion(strings.TrimSpace(minS)); err != nil {
			return 0, 0, fmt.Errorf("invalid --min-tls: %w", err)
		}
	}
	if strings.TrimSpace(maxS) != "" {
		if maxV, err = negotiate.ParseVersion(strings.TrimSpace(maxS)); err != nil {
			return 0, 0, fmt.Errorf("invalid --max-tls: %w", err)
		}
	}
	return minV, maxV, nil
}
