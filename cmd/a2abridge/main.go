package main

import (
	"flag"
	"fmt"
	"os"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir string
	Addr      string
	MCPAddr   string
	ServeMCP  bool
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("a2abridge", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding .env files and a2abridge.yml")
	fs.StringVar(&flags.Addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "also serve the MCP tools over streamable HTTP on this address")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as an MCP server on stdio instead of serving HTTP")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: a2abridge [flags] [serve | card | uuid ...]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	switch cmd := fs.Arg(0); cmd {
	case "", "serve":
		return runServe(flags)
	case "card":
		return runCard(flags, os.Stdout)
	case "uuid":
		return runUUID(fs.Args()[1:], os.Stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
