// Package cmd contains the wallet app.
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/nameservice"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix prefixes the environment variables that override the flags,
// such as WALLET_ACCOUNT_PATH.
const envPrefix = "WALLET"

// Keys of the configuration values.
const (
	keyAccount     = "account"
	keyAccountPath = "account-path"
	keyNetwork     = "network"
	keyURL         = "url"
	keyAPIKey      = "api-key"
	keyTo          = "to"
	keyValue       = "value"
)

// v holds the wallet configuration: flags, then environment, then defaults.
var v = viper.New()

// dial connects to the node behind the endpoint.
var dial = func(ctx context.Context, ep chain.Endpoint) (chain.Client, error) {
	conn, err := chain.Connect(ctx, ep)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var rootCmd = &cobra.Command{
	Use:           "wallet",
	Short:         "Your simple wallet",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringP(keyAccount, "a", "private", "Name of the private key file.")
	rootCmd.PersistentFlags().StringP(keyAccountPath, "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP(keyURL, "u", "", "Url of the node, overrides the network.")
	rootCmd.PersistentFlags().StringP(keyNetwork, "n", "sepolia", "Hosted network reached with ALCHEMY_API_KEY.")

	v.BindPFlag(keyAccount, rootCmd.PersistentFlags().Lookup(keyAccount))
	v.BindPFlag(keyAccountPath, rootCmd.PersistentFlags().Lookup(keyAccountPath))
	v.BindPFlag(keyURL, rootCmd.PersistentFlags().Lookup(keyURL))
	v.BindPFlag(keyNetwork, rootCmd.PersistentFlags().Lookup(keyNetwork))
	v.BindEnv(keyAPIKey, "ALCHEMY_API_KEY")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect dials the configured endpoint. The returned func releases the
// connection.
func connect(ctx context.Context) (chain.Client, func(), error) {
	ep, err := endpoint()
	if err != nil {
		return nil, nil, err
	}

	client, err := dial(ctx, ep)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if c, ok := client.(interface{ Close() }); ok {
		closeFn = c.Close
	}

	return client, closeFn, nil
}

// endpoint selects the node url, or the hosted network when no url is
// configured.
func endpoint() (chain.Endpoint, error) {
	if url := v.GetString(keyURL); url != "" {
		return chain.NewURLEndpoint(url, 0)
	}

	apiKey := v.GetString(keyAPIKey)
	if apiKey == "" {
		return chain.Endpoint{}, errors.New("either --url or ALCHEMY_API_KEY is required")
	}

	return chain.NewEndpoint(v.GetString(keyNetwork), apiKey)
}

func getPrivateKeyPath() string {
	name := v.GetString(keyAccount)
	if !strings.HasSuffix(name, nameservice.KeyExtension) {
		name += nameservice.KeyExtension
	}

	return filepath.Join(v.GetString(keyAccountPath), name)
}
