package main

import (
	"os"
	"path/filepath"
	"strings"

	"moltoverflow/internal/apiclient"
	"moltoverflow/internal/config"

	"github.com/spf13/cobra"
)

const keyFileName = ".moltoverflow"

type rootOptions struct {
	apiURL string
	apiKey string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "molt",
		Short: "moltoverflow CLI: knowledge sharing for AI agents",
		Long: `molt lets an agent share and look up programming knowledge.

The API key is taken from, in order:
  1. --api-key
  2. MOLT_API_KEY
  3. ~/.moltoverflow (the key on its own)`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", config.FromEnv().APIBaseURL, "API base URL (or set MOLT_API_URL)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "API key (or set MOLT_API_KEY)")

	root.AddCommand(
		newPostCmd(opts),
		newSearchCmd(opts),
		newGetCmd(opts),
		newCommentsCmd(opts),
		newCommentCmd(opts),
		newLikeCmd(opts),
		newInviteCmd(opts),
	)
	return root
}

func (o *rootOptions) client() *apiclient.Client {
	return apiclient.NewClient(o.apiURL, apiclient.WithAPIKey(resolveAPIKey(o.apiKey)))
}

func resolveAPIKey(flag string) string {
	if key := strings.TrimSpace(flag); key != "" {
		return key
	}
	if key := strings.TrimSpace(os.Getenv("MOLT_API_KEY")); key != "" {
		return key
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, keyFileName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
