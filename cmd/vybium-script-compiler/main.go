// Command vybium-script-compiler reads a structured program as JSON from
// stdin, compiles it, and writes the CBOR artifact to stdout. The hint
// manifest can be written separately for the trace generator.
//
// Usage:
//
//	vybium-script-compiler [-config compiler.toml] [-manifest hints.json] [-disasm] [-v] < program.json > script.cbor
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	vsc "github.com/vybium/vybium-script-compiler/pkg/vybium-script-compiler"
)

// fileConfig is the TOML form of the compiler configuration
type fileConfig struct {
	MaxStackDepth int  `toml:"max_stack_depth"`
	AutoMove      bool `toml:"auto_move"`
}

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	manifestPath := flag.String("manifest", "", "write the hint manifest as JSON to this file")
	disasm := flag.Bool("disasm", false, "print the disassembly instead of the CBOR artifact")
	verbose := flag.Bool("v", false, "log per-statement compile traces to stderr")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *verbose {
		logger = logger.Level(zerolog.TraceLevel)
	}

	config := loadConfig(*configPath, logger)
	config = config.WithLogger(logger)

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(fmt.Sprintf("Failed to read program: %v", err))
	}
	prog, err := decodeProgram(input)
	if err != nil {
		fatal(fmt.Sprintf("Failed to parse program: %v", err))
	}

	logger.Info().
		Int("functions", len(prog.Funcs)).
		Int("statements", len(prog.Body)).
		Int("outputs", len(prog.Outputs)).
		Msg("compiling")

	compiled, err := vsc.Compile(prog, config)
	if err != nil {
		fatal(fmt.Sprintf("Compilation failed: %v", err))
	}

	digest := compiled.Digest()
	logger.Info().
		Int("instructions", len(compiled.Script)).
		Int("max_stack_depth", compiled.MaxStackDepth).
		Int("hints", len(compiled.Hints)).
		Hex("digest", digest[:]).
		Msg("compiled")

	if *manifestPath != "" {
		writeManifest(*manifestPath, compiled)
	}

	if *disasm {
		fmt.Println(compiled.Script.String())
		return
	}

	artifact, err := vsc.MarshalArtifact(compiled)
	if err != nil {
		fatal(fmt.Sprintf("Failed to encode artifact: %v", err))
	}
	if _, err := os.Stdout.Write(artifact); err != nil {
		fatal(fmt.Sprintf("Failed to write artifact: %v", err))
	}
}

func loadConfig(path string, logger zerolog.Logger) *vsc.Config {
	config := vsc.DefaultConfig()
	if path == "" {
		return config
	}

	var fc fileConfig
	fc.MaxStackDepth = config.MaxStackDepth
	fc.AutoMove = config.AutoMove
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		fatal(fmt.Sprintf("Failed to read config %s: %v", path, err))
	}
	logger.Debug().Str("path", path).Msg("loaded config")
	return config.WithMaxStackDepth(fc.MaxStackDepth).WithAutoMove(fc.AutoMove)
}

// manifestEntry is the JSON form of one hint slot
type manifestEntry struct {
	Seq   int    `json:"seq"`
	Type  string `json:"type"`
	Slots int    `json:"slots"`
	Name  string `json:"name,omitempty"`
}

func writeManifest(path string, compiled *vsc.CompiledScript) {
	entries := make([]manifestEntry, len(compiled.Hints))
	for i, h := range compiled.Hints {
		entries[i] = manifestEntry{
			Seq:   h.Seq,
			Type:  h.Type.String(),
			Slots: h.Type.Width(),
			Name:  h.Name,
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fatal(fmt.Sprintf("Failed to encode manifest: %v", err))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		fatal(fmt.Sprintf("Failed to write manifest %s: %v", path, err))
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "vybium-script-compiler: ERROR:", msg)
	os.Exit(1)
}
