package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/voiceorder/internal/cart"
	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	"github.com/GriffinCanCode/voiceorder/internal/knowledge"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
)

func newAskCmd(root *rootOptions) *cobra.Command {
	var catalogFile string
	cmd := &cobra.Command{
		Use:   "ask <tool> [json-args]",
		Short: "Run one tool call against a catalog file and an empty cart",
		Long: `Run one tool call the way the assistant would, against a catalog file
and an in-memory cart. Arguments are a JSON object; loosely formed JSON
is repaired.

Examples:
  voiceorder ask addToOrder '{"itemName": "cola", "quantity": 2}' --catalog menu.yaml
  voiceorder ask queryKnowledgeBase '{query: "wifi parol"}' --catalog menu.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := catalogFile
			if path == "" {
				path = root.cfg.CatalogFile
			}
			if path == "" {
				return errors.New("a catalog file is required (--catalog or CATALOG_FILE)")
			}
			raw := ""
			if len(args) == 2 {
				raw = args[1]
			}
			snap, err := catalog.NewFileSource(path).Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return ask(cmd, snap, root.cfg.Currency, args[0], raw)
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "YAML/JSON catalog file (CATALOG_FILE)")
	return cmd
}

func ask(cmd *cobra.Command, snap catalog.Snapshot, currency, name, rawArgs string) error {
	if !slices.Contains(tools.Names, name) {
		return fmt.Errorf("unknown tool %q (want one of %s)", name, strings.Join(tools.Names, ", "))
	}
	args, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	d := tools.NewDispatcher(tools.Deps{
		Cart:      cart.NewMemory(),
		Resolver:  catalog.NewResolver(snap.Products),
		Knowledge: knowledge.New(snap.Knowledge),
		Navigator: tools.NavigatorFunc(func(context.Context) { fmt.Fprintln(out, "-> navigate /cart") }),
		Currency:  currency,
	})
	resp := d.Dispatch(cmd.Context(), tools.Request{ID: "cli", Name: name, Args: args})
	fmt.Fprintln(out, resp.Result)
	return nil
}

// parseArgs decodes a JSON object, repairing it once if it is malformed.
func parseArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	args, err := decodeObject(raw)
	if err == nil {
		return args, nil
	}
	fixed, rerr := jsonrepair.JSONRepair(raw)
	if rerr != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	return decodeObject(fixed)
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after arguments")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
