package main

import (
	"context"
	"os"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

type exportManifestCmd struct {
	Out string `short:"o" type:"path" help:"Output file (defaults to stdout)."`
}

func (cmd *exportManifestCmd) Run(_ context.Context, g *globals) error {
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	catalog := ctrl.Store().Catalog()
	if cmd.Out == "" {
		return catalog.WriteManifest(os.Stdout)
	}
	f, err := os.Create(cmd.Out) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, "create manifest file", j.KV("path", cmd.Out))
	}
	defer f.Close()
	return catalog.WriteManifest(f)
}
