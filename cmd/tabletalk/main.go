package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabletalk",
		Short: "Operate a data table in natural language",
		Long: "tabletalk loads a dataset and exposes sort, filter, select, group and analytics " +
			"operations as MCP tools, or applies natural-language requests through a language model.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindFlags(root)
	root.AddCommand(newServeCmd(), newAskCmd(), newAnalyzeCmd())
	return root
}

// redactDSN masks the password of a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
