package main

import (
	"fmt"
	"io"
	"os"

	"github.com/debemdeboas/inkwell/internal/config"
	"gopkg.in/yaml.v3"
)

const header = "# InkWell Configuration Example\n# Copy this file to config.yaml and customize as needed.\n# Secrets are read from the environment (or .env): ED25519_PUBKEY, CLERK_API,\n# S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY.\n\n"

// generate writes the default configuration as commented YAML.
func generate(w io.Writer) error {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error generating YAML: %w", err)
	}

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err = w.Write(yamlData)
	return err
}

func main() {
	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		if err := generate(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	f, err := os.Create(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := generate(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
