package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/personalweb03/services/internal/cloudfile"
	"github.com/personalweb03/services/internal/config"
	"github.com/personalweb03/services/internal/msgraph"
)

var (
	authRedirectURL string
	authTimeout     time.Duration
	authNoBrowser   bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Obtain a OneDrive refresh token through the browser",
	Long: `auth runs the one-time Microsoft sign-in. It serves the redirect URI on
localhost, opens the consent page and prints the refresh token to put into
REFRESH_TOKEN. When REFRESH_TOKEN is an "ssm:" reference the token is stored
in that parameter instead.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&authRedirectURL, "redirect-url", msgraph.DefaultRedirectURL, "Redirect URI registered for the application")
	authCmd.Flags().DurationVar(&authTimeout, "timeout", msgraph.DefaultAuthTimeout, "How long to wait for the sign-in")
	authCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Only print the consent URL")
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if a.cfg.LeftOff.Provider != config.ProviderOneDrive {
		fmt.Fprintf(os.Stderr, "auth supports CLOUD_PROVIDER=%s only\n", config.ProviderOneDrive)
		a.exit(1)
	}
	if a.cfg.LeftOff.ApplicationID == "" || a.cfg.LeftOff.ClientSecret == "" {
		fmt.Fprintln(os.Stderr, "APPLICATION_ID and CLIENT_SECRET are required")
		a.exit(1)
	}

	p := a.oneDrive()
	tok, err := p.Authorize(ctx, msgraph.AuthorizeOptions{
		Credential: cloudfile.Credential{
			ApplicationID: a.cfg.LeftOff.ApplicationID,
			ClientSecret:  a.cfg.LeftOff.ClientSecret,
		},
		RedirectURL: authRedirectURL,
		Timeout:     authTimeout,
		OpenBrowser: !authNoBrowser,
		Out:         os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Authorization failed: %v\n", err)
		a.exit(1)
	}

	fmt.Fprintln(os.Stderr, "Authorization successful.")
	a.storeRefreshToken(ctx, tok.RefreshToken)
	a.exit(0)
	return nil
}
