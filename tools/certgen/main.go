// Package main writes a development CA, a server certificate and a client
// certificate into a directory. An existing CA in that directory is reused.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/shoebox/internal/certgen"
)

func main() {
	var (
		dir   string
		hosts string
		user  string
	)
	flag.StringVar(&dir, "dir", "certs", "output directory")
	flag.StringVar(&hosts, "hosts", "localhost", "comma separated server host names")
	flag.StringVar(&user, "user", "local", "user id placed in the client certificate CN")
	flag.Parse()

	if err := run(dir, strings.Split(hosts, ","), user); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", dir)
}

func run(dir string, hosts []string, user string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	caCert, caKey := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")

	ca, err := certgen.LoadAuthority(caCert, caKey)
	if errors.Is(err, fs.ErrNotExist) {
		ca, err = newAuthority(caCert, caKey)
	}
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := ca.IssueServer(hosts...)
	if err != nil {
		return fmt.Errorf("server cert: %w", err)
	}
	if err := certgen.WritePair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM); err != nil {
		return err
	}

	certPEM, keyPEM, err = ca.IssueClient(user)
	if err != nil {
		return fmt.Errorf("client cert: %w", err)
	}
	return certgen.WritePair(filepath.Join(dir, "client.crt"), filepath.Join(dir, "client.key"), certPEM, keyPEM)
}

func newAuthority(certPath, keyPath string) (*certgen.Authority, error) {
	ca, err := certgen.NewAuthority("Shoebox CA")
	if err != nil {
		return nil, err
	}
	certPEM, keyPEM, err := ca.PEM()
	if err != nil {
		return nil, err
	}
	if err := certgen.WritePair(certPath, keyPath, certPEM, keyPEM); err != nil {
		return nil, err
	}
	return ca, nil
}
