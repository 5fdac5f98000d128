// Command gencert writes a self-signed certificate and key for local HTTPS
// (TLS_CERT_FILE / TLS_KEY_FILE).
package main

import (
	"flag"
	"os"
	"strings"

	"oahushop/internal/logx"
	"oahushop/internal/services"
)

func main() {
	hosts := flag.String("hosts", "localhost,127.0.0.1,::1", "comma separated host names and IPs")
	certPath := flag.String("cert", "cert.pem", "certificate output path")
	keyPath := flag.String("key", "key.pem", "private key output path")
	flag.Parse()

	logx.Init()

	certPEM, keyPEM, err := services.SelfSignedPEM(strings.Split(*hosts, ","))
	if err != nil {
		logx.Fatal().Err(err).Msg("certificate not created")
	}
	if err := os.WriteFile(*certPath, certPEM, 0o644); err != nil {
		logx.Fatal().Err(err).Str("path", *certPath).Msg("write certificate")
	}
	if err := os.WriteFile(*keyPath, keyPEM, 0o600); err != nil {
		logx.Fatal().Err(err).Str("path", *keyPath).Msg("write key")
	}
	logx.Info().Str("cert", *certPath).Str("key", *keyPath).Msg("self-signed certificate created")
}
