package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"certchain/cmd/internal/passphrase"
	"certchain/crypto"
	"certchain/rpc"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	defaultPassEnv   = "CERTCHAIN_VERIFIER_PASS"
	defaultSecretEnv = "CERTCHAIN_JWT_SECRET"
	defaultKeystore  = "verifier.keystore"
	defaultIssuer    = "certchain"
)

type command struct {
	summary string
	run     func(args []string, out io.Writer) error
}

var commands = map[string]command{
	"keygen":  {"generate a verifier key and write it to an encrypted keystore", runKeygen},
	"address": {"print the address held by a keystore", runAddress},
	"digest":  {"print the digest of a signing request", runDigest},
	"sign":    {"sign a request with the verifier keystore", runSign},
	"verify":  {"check a signature against a request and expected signer", runVerify},
	"token":   {"issue a caller token for the RPC server", runToken},
	"export":  {"export committed events as JSON Lines, CSV or Parquet", runExport},
}

func newPassphraseSource(envVar string) *passphrase.Source {
	return passphrase.NewSource(envVar, "verifier")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage(os.Stderr)
		os.Exit(1)
	}
	if err := cmd.run(os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certctl <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func runKeygen(args []string, out io.Writer) error {
	fs := newFlagSet("keygen")
	keystorePath := fs.String("keystore", defaultKeystore, "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, err := os.Stat(*keystorePath); err == nil {
			return fmt.Errorf("keystore file %s already exists (use -force to overwrite)", *keystorePath)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	pass, err := newPassphraseSource(*passEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, pass); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	fmt.Fprintf(out, "Keystore: %s\nAddress:  %s\n", *keystorePath, key.Address().Hex())
	return nil
}

func loadKey(path, passEnv string) (*crypto.PrivateKey, error) {
	pass, err := newPassphraseSource(passEnv).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}
	return key, nil
}

func runAddress(args []string, out io.Writer) error {
	fs := newFlagSet("address")
	keystorePath := fs.String("keystore", defaultKeystore, "Keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := loadKey(*keystorePath, *passEnv)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, key.Address().Hex())
	return nil
}

func runDigest(args []string, out io.Writer) error {
	fs := newFlagSet("digest")
	requestPath := fs.String("request", "", "YAML signing request")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := loadRequest(*requestPath)
	if err != nil {
		return err
	}
	digest, kind, err := req.digest()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Kind:   %s\nDigest: %s\n", kind, digest.Hex())
	return nil
}

func runSign(args []string, out io.Writer) error {
	fs := newFlagSet("sign")
	requestPath := fs.String("request", "", "YAML signing request")
	keystorePath := fs.String("keystore", defaultKeystore, "Verifier keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := loadRequest(*requestPath)
	if err != nil {
		return err
	}
	digest, kind, err := req.digest()
	if err != nil {
		return err
	}
	key, err := loadKey(*keystorePath, *passEnv)
	if err != nil {
		return err
	}
	sig, err := crypto.SignPersonal(digest.Bytes(), key)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	fmt.Fprintf(out, "Kind:      %s\nDigest:    %s\nSigner:    %s\nSignature: %s\n",
		kind, digest.Hex(), key.Address().Hex(), hexutil.Encode(sig))
	return nil
}

func runVerify(args []string, out io.Writer) error {
	fs := newFlagSet("verify")
	requestPath := fs.String("request", "", "YAML signing request")
	signature := fs.String("signature", "", "0x-prefixed signature")
	signer := fs.String("signer", "", "Expected verifier address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := loadRequest(*requestPath)
	if err != nil {
		return err
	}
	digest, _, err := req.digest()
	if err != nil {
		return err
	}
	sig, err := hexutil.Decode(strings.TrimSpace(*signature))
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	recovered, err := crypto.RecoverPersonal(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("recover signer: %w", err)
	}
	fmt.Fprintf(out, "Recovered: %s\n", recovered.Hex())
	if strings.TrimSpace(*signer) == "" {
		return nil
	}
	expected, err := crypto.ParseAddress(*signer)
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	if !crypto.VerifyPersonal(expected, digest.Bytes(), sig) {
		return fmt.Errorf("signature was not produced by %s", expected.Hex())
	}
	fmt.Fprintln(out, "Valid:     true")
	return nil
}

func runToken(args []string, out io.Writer) error {
	fs := newFlagSet("token")
	subject := fs.String("subject", "", "Caller address carried in the token subject")
	secretEnv := fs.String("secret-env", defaultSecretEnv, "Environment variable containing the HMAC secret")
	issuer := fs.String("issuer", defaultIssuer, "Token issuer")
	audience := fs.String("audience", "", "Comma-separated audience list")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := crypto.ParseAddress(*subject)
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	secret, ok := os.LookupEnv(strings.TrimSpace(*secretEnv))
	if !ok || strings.TrimSpace(secret) == "" {
		return fmt.Errorf("environment variable %s is not set", *secretEnv)
	}
	var aud []string
	for _, part := range strings.Split(*audience, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			aud = append(aud, trimmed)
		}
	}
	token, err := rpc.IssueToken([]byte(secret), caller, strings.TrimSpace(*issuer), aud, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
