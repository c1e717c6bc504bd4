package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"awsdev/internal/mcp"
	"awsdev/pkg/server"

	_ "awsdev/toolsets/aws"
	_ "awsdev/toolsets/profile"
	_ "awsdev/toolsets/script"
)

const version = "0.1.0"

var (
	runServer = server.Run
	listTools = server.Tools
	exit      = os.Exit
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exit(1)
	}
}

type flagValues struct {
	configPath         string
	profile            string
	region             string
	toolsets           string
	readOnly           bool
	disableDestructive bool
	logLevel           string
	sessionTTL         time.Duration
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &flagValues{}
	root := &cobra.Command{
		Use:           "awsdev",
		Short:         "MCP server exposing AWS developer tools over stdio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), flags.options(cmd, stderr))
		},
	}
	persistent := root.PersistentFlags()
	persistent.StringVar(&flags.configPath, "config", "", "config file path")
	persistent.StringVar(&flags.profile, "profile", "", "default AWS profile")
	persistent.StringVar(&flags.region, "region", "", "default AWS region")
	persistent.StringVar(&flags.toolsets, "toolsets", "", "comma-separated toolsets to enable")
	persistent.BoolVar(&flags.readOnly, "read-only", false, "only expose read-only tools")
	persistent.BoolVar(&flags.disableDestructive, "disable-destructive", false, "hide risky and destructive tools")
	persistent.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	persistent.DurationVar(&flags.sessionTTL, "session-ttl", 0, "session cache lifetime, 0s rebuilds on every call")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), flags.options(cmd, stderr))
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "Print the advertised tools as JSON without contacting AWS",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := listTools(flags.options(cmd, stderr))
			if err != nil {
				return err
			}
			if infos == nil {
				infos = []mcp.ToolInfo{}
			}
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, version)
		},
	})
	return root
}

// options carries only the flags that were set, so the config file keeps
// the remaining values.
func (f *flagValues) options(cmd *cobra.Command, stderr io.Writer) server.Options {
	opts := server.Options{
		ConfigPath: f.configPath,
		Version:    version,
		Stderr:     stderr,
	}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("profile") {
		opts.Profile = f.profile
	}
	if changed("region") {
		opts.Region = f.region
	}
	if changed("toolsets") {
		opts.Toolsets = parseCSV(f.toolsets)
	}
	if changed("read-only") {
		opts.ReadOnly = f.readOnly
	}
	if changed("disable-destructive") {
		opts.DisableDestructive = f.disableDestructive
	}
	if changed("log-level") {
		opts.LogLevel = f.logLevel
	}
	if changed("session-ttl") {
		seconds := int(f.sessionTTL / time.Second)
		opts.SessionTTLSeconds = &seconds
	}
	return opts
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
