package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghalamif/aegis-sensor/internal/app/config"
	"github.com/ghalamif/aegis-sensor/internal/signer"
)

var keygenFlags struct {
	kind       string
	bits       int
	dir        string
	name       string
	passphrase string
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signing key pair as PEM files",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := signer.GenerateKey(keygenFlags.kind, keygenFlags.bits)
		if err != nil {
			return err
		}

		pass := []byte(keygenFlags.passphrase)
		if len(pass) == 0 {
			pass = []byte(os.Getenv(config.DefaultPassphraseEnv))
		}

		priv, pub, err := signer.WriteKeyPair(keygenFlags.dir, keygenFlags.name, key, pass)
		if err != nil {
			return err
		}

		encrypted := "unencrypted"
		if len(pass) > 0 {
			encrypted = "encrypted"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s private key %s and public key %s\n", encrypted, priv, pub)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenFlags.kind, "kind", signer.KindRSA, "Key type: rsa or ecdsa")
	keygenCmd.Flags().IntVar(&keygenFlags.bits, "bits", 2048, "RSA modulus size")
	keygenCmd.Flags().StringVar(&keygenFlags.dir, "dir", "./keys", "Output directory")
	keygenCmd.Flags().StringVar(&keygenFlags.name, "name", "aegis", "File name prefix")
	keygenCmd.Flags().StringVar(&keygenFlags.passphrase, "passphrase", "", "Encrypt the private key (default: $AEGIS_KEY_PASSPHRASE)")
}
