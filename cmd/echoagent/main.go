// Command echoagent runs a local A2A agent that echoes each message back as
// a streamed artifact. It is the default upstream for a2abridge in
// development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dusk-indust/a2abridge/internal/agent"
)

// version is set by goreleaser at build time.
var version = "dev"

const prefix = "/a2a"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("echoagent", flag.ContinueOnError)
	addr := fs.String("addr", ":8010", "listen address")
	publicURL := fs.String("url", "", "URL advertised in the agent card (default http://localhost<addr>/a2a/)")
	delay := fs.Duration("delay", 50*time.Millisecond, "pause between streamed events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	url := *publicURL
	if url == "" {
		host := *addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		url = "http://" + host + prefix + "/"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := agent.NewEchoAgent(agent.EchoCard(url, version), *delay)
	if err := a.Start(ctx, *addr, prefix); err != nil {
		return err
	}
	log.Printf("echo agent listening on %s (card at %s.well-known/agent-card.json)", *addr, url)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Stop(shutdownCtx)
}
