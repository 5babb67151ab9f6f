package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"ethglobaltaipei/backend/internal/transport/ws"
)

func main() {
	var outPath, message string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.StringVar(&message, "message", "snapshot", "wire message: state (client -> relay) or snapshot (relay -> client)")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema, err := buildSchema(message)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema(message string) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	var schema *jsonschema.Schema
	switch message {
	case "state":
		schema = reflector.Reflect(new(ws.PlayerState))
		schema.Title = "Player State"
		schema.Description = fmt.Sprintf("Avatar state sent by a client once per tick (protocol v%d)", ws.ProtocolVersion)
	case "snapshot":
		schema = reflector.Reflect(new(ws.GameState))
		schema.Title = "Game State Snapshot"
		schema.Description = fmt.Sprintf("Full roster broadcast by the relay, keyed by client id (protocol v%d)", ws.ProtocolVersion)
	default:
		return nil, fmt.Errorf("unknown message %q, want state or snapshot", message)
	}
	return schema, nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
