// Command cookiesolver is a standalone front end for the cookie
// requirement analyzer and classifier, replacing the host-proxy UI a
// real Burp/mitmproxy extension would provide.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cookiesolver",
	Short: "Cookie requirement analysis and AI classification",
	Long:  `cookiesolver replays captured requests with cookie subsets removed to find which cookies a target actually requires, and classifies cookie names via a local AI query cache.`,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults omitted fields)")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
