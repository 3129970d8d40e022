package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"guildmaster/server/internal/net/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	client := reflector.Reflect(new(proto.ClientMessage))
	client.Title = "Client Message"
	client.Description = "Frames a client may send over the websocket."

	state := reflector.Reflect(new(proto.StateMessageV1))
	state.Title = "State Broadcast"
	state.Description = "Per-tick snapshot and event batch pushed to every subscriber."

	keyframe := reflector.Reflect(new(proto.KeyframeMessageV1))
	keyframe.Title = "Keyframe Response"
	keyframe.Description = "Historical snapshot plus replay events served from the journal."

	join := reflector.Reflect(new(proto.JoinResponseV1))
	join.Title = "Join Response"
	join.Description = "Session grant returned by POST /join."

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Guildmaster Wire Protocol",
		Description: "Message envelopes exchanged between the server and game clients.",
		OneOf:       []*jsonschema.Schema{client, state, keyframe, join},
	}
	return root
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
