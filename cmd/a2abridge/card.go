package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dusk-indust/a2abridge/internal/config"
)

// runCard resolves the configured agent's card and prints it.
func runCard(flags cliFlags, w io.Writer) error {
	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	_, resolver := newResolver(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.A2ATimeout)
	defer cancel()

	card, err := resolver.ResolveCard(ctx, cfg.A2AClient)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(card); err != nil {
		return fmt.Errorf("print card: %w", err)
	}
	return nil
}
