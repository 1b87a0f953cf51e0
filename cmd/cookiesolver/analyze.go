package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cookiesolver/cookiesolver/internal/cliproxy"
	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/internal/replayer"
	"github.com/cookiesolver/cookiesolver/internal/solver"
	"github.com/cookiesolver/cookiesolver/pkg/cookie"
)

var requestFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find the minimal required cookie set for a captured request",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(logger.Config{Level: cfg.Log.Level, Writer: cfg.Log.Writer, Path: cfg.Log.Path})

		req, err := cliproxy.LoadRequest(requestFile)
		if err != nil {
			return err
		}

		sv := solver.New(replayer.New(cliproxy.NewSender()), log)
		verdict := sv.Analyze(context.Background(), req, req.Cookies())

		printVerdict(verdict)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&requestFile, "request", "", "path to a raw captured HTTP request file")
	_ = analyzeCmd.MarkFlagRequired("request")
}

func printVerdict(v cookie.Verdict) {
	if v.Failed {
		fmt.Println("analysis failed: baseline did not respond")
		return
	}
	fmt.Printf("required: %s\n", names(v.Required))
	fmt.Printf("optional: %s\n", names(v.Optional))
	for id, alts := range v.Alternatives {
		fmt.Printf("alternatives for %s: %s\n", cookieNameByID(v.Required, id), names(alts))
	}
	if v.Unreliable {
		fmt.Println("WARNING: verdict marked unreliable (smart-verify failed twice)")
	}
	fmt.Printf("requests sent: %d\n", v.RequestsSent)
}

func names(cookies []cookie.Cookie) string {
	if len(cookies) == 0 {
		return "none"
	}
	out := ""
	for i, c := range cookies {
		if i > 0 {
			out += ", "
		}
		out += c.Name
	}
	return out
}

func cookieNameByID(cookies []cookie.Cookie, id cookie.ID) string {
	for _, c := range cookies {
		if c.ID() == id {
			return c.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}
