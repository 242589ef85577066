package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/drewfurgiuele/googleddns"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	Domain    string
	Subdomain string
	IP        string
	Offline   bool
	Online    bool
	Username  string
	KeyFile   string
	DryRun    bool
	Timeout   time.Duration
	Verbose   bool
}

func newRootCommand() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:   "googleddns",
		Short: "Update a Google Domains dynamic DNS record",
		Long: `Update a Google Domains dynamic DNS record over HTTPS.

The secret half of the credentials is read from a file (see --keyfile).
If the file does not exist you will be prompted for the secret and the
file will be created with mode 0600.

Examples:
  googleddns -d example.com -s home -u generated-username
  googleddns -d example.com -s home -u generated-username --ip 203.0.113.5
  googleddns -d example.com -s home -u generated-username --offline
  googleddns -d example.com -s home -u generated-username --ip 203.0.113.5 --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.Domain, "domain", "d", "", "registered domain name [required]")
	cmd.Flags().StringVarP(&flags.Subdomain, "subdomain", "s", "", "subdomain whose record is updated [required]")
	cmd.Flags().StringVar(&flags.IP, "ip", "", "IPv4 address to set (default: the provider uses the requesting address)")
	cmd.Flags().BoolVar(&flags.Offline, "offline", false, "mark the hostname offline")
	cmd.Flags().BoolVar(&flags.Online, "online", false, "clear a previous offline state")
	cmd.Flags().StringVarP(&flags.Username, "username", "u", "", "generated dynamic DNS username [required]")
	cmd.Flags().StringVarP(&flags.KeyFile, "keyfile", "k", filepath.Join(os.Getenv("HOME"), ".googleddns"), "path to the dynamic DNS secret file")
	cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "n", false, "print the request parameters without sending the update")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 30*time.Second, "deadline for the update request")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose logging")

	cmd.MarkFlagRequired("domain")
	cmd.MarkFlagRequired("subdomain")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagsMutuallyExclusive("ip", "offline", "online")

	return cmd
}

func run(cmd *cobra.Command, flags rootFlags) error {
	logger := log.New(io.Discard, "", log.LstdFlags)
	if flags.Verbose {
		logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	}

	secret, err := readSecret(flags.KeyFile, logger)
	if err != nil {
		return fmt.Errorf("error reading secret: %w", err)
	}
	logger.Println("successfully read secret from key file")

	opts := []googleddns.Option{
		googleddns.WithCredentials(flags.Username, secret),
		googleddns.WithLogger(logger),
	}
	if flags.IP != "" {
		opts = append(opts, googleddns.UsingIP(flags.IP))
	}
	if flags.Offline {
		opts = append(opts, googleddns.Offline())
	}
	if flags.Online {
		opts = append(opts, googleddns.Online())
	}
	if flags.DryRun {
		opts = append(opts, googleddns.WithConfirm(func(hostname string, params url.Values) bool {
			fmt.Fprintf(cmd.OutOrStdout(), "dry run: would POST %q to %s\n", params.Encode(), googleddns.UpdateURL)
			return false
		}))
	}

	client, err := googleddns.New(flags.Domain, flags.Subdomain, opts...)
	if err != nil {
		return fmt.Errorf("error creating googleddns.Client: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.Timeout)
	defer cancel()
	result, err := client.Run(ctx)
	if err != nil {
		return err
	}
	if result == nil {
		// the confirmation gate declined; nothing was sent
		return nil
	}

	hostname := flags.Subdomain + "." + flags.Domain
	switch {
	case !flags.Offline && !flags.Online && result.Changed:
		fmt.Fprintf(cmd.OutOrStdout(), "%s now resolves to %s\n", hostname, result.IP)
	case !flags.Offline && !flags.Online:
		fmt.Fprintf(cmd.OutOrStdout(), "%s is unchanged at %s\n", hostname, result.IP)
	case flags.Offline:
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now offline\n", hostname)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s is back online at %s\n", hostname, result.IP)
	}
	return nil
}

// readSecret reads the dynamic DNS secret from path, prompting to create the
// file on first run and refusing key files with loose permissions.
func readSecret(path string, logger *log.Logger) (string, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		logger.Printf("secret file %q does not exist\n", path)
		if err := runSetup(path); err != nil {
			return "", fmt.Errorf("setup: %w", err)
		}
	}
	if err := verifyPermissions(path); err != nil {
		return "", err
	}
	return readKey(path)
}

func runSetup(path string) error {
	fmt.Printf("Enter the generated dynamic DNS secret: \n")
	bytekey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("error reading from stdin: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", path, err)
	}
	defer f.Close()
	fmt.Fprintln(f, string(bytekey))
	return nil
}

func readKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	return string(keyb), nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking key file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for %q: expected file permissions \"-rw-------\"; found %q", path, fs.FileMode(perms))
	}

	return nil
}
