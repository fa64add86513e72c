package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/tec/network"
)

// runCert writes a self signed certificate for address into dir and
// prints a fresh signing key.
func runCert(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("cert expects <address> <dir>")
	}
	address, dir := args[0], args[1]
	_, certPEM, keyPEM, err := network.GenerateSelfSignedCert(address)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return err
	}

	key := network.NewKeyPair()
	priv, err := key.MarshalPrivateKey()
	if err != nil {
		return err
	}
	pub, err := network.MarshalPublicKey(key.Public)
	if err != nil {
		return err
	}
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	pbox.WithTitle(pterm.LightGreen("|" + address + "|")).WithTitleTopCenter().Println(
		pterm.Sprintfln("TEC_TLS_CERT=%s\nTEC_TLS_KEY=%s\nTEC_KEY=%s\n\npublic key: %s", certPath, keyPath, priv, pub),
	)
	return nil
}
