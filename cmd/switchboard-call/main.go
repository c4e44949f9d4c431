// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Switchboard-call sends one request to a switchboard gateway and
// prints the response envelope as JSON. Each argument after the
// service and method is decoded as JSON when it parses, and passed as
// a string otherwise, so `switchboard-call echo echo 1 true hello`
// sends [1, true, "hello"].
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/switchboard/lib/gateway"
	"github.com/bureau-foundation/switchboard/lib/process"
	"github.com/bureau-foundation/switchboard/lib/version"
)

const defaultURL = "ws://localhost:8080/socket"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		url         string
		binary      bool
		timeout     time.Duration
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("switchboard-call", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", defaultURL, "gateway WebSocket URL (or $SWITCHBOARD_URL)")
	flagSet.BoolVar(&binary, "binary", false, "send CBOR in binary frames instead of JSON")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "time to wait for the response")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: switchboard-call [flags] <service> <method> [args...]\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Fprint(stdout, "switchboard-call")
		return nil
	}
	if !flagSet.Changed("url") {
		if fromEnv := os.Getenv("SWITCHBOARD_URL"); fromEnv != "" {
			url = fromEnv
		}
	}

	positional := flagSet.Args()
	if len(positional) < 2 {
		flagSet.Usage()
		return errors.New("service and method are required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := gateway.Dial(ctx, url, gateway.ClientOptions{Binary: binary})
	if err != nil {
		return err
	}
	defer client.Close()

	response, err := client.Call(ctx, positional[0], positional[1], parseArgs(positional[2:])...)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return fmt.Errorf("printing response: %w", err)
	}
	if response.Failed() {
		return fmt.Errorf("%s.%s: %s", positional[0], positional[1], response.ErrorMessage())
	}
	return nil
}

// parseArgs decodes each argument as JSON, keeping it as a string when
// it is not valid JSON.
func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, text := range raw {
		var value any
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			args = append(args, text)
			continue
		}
		args = append(args, value)
	}
	return args
}
