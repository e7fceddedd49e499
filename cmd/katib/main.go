/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// katib converts unstructured imported text into typed screenplay blocks.
//
// Usage:
//
//	katib classify [-review] [file]             classify plain text into blocks (JSON on stdout)
//	katib export [-doc id] [-store dir] [file]  classify and emit a payload marker; -doc persists it
//	katib restore [-doc id] [-store dir] [file] restore blocks from a marker or a stored snapshot
//	katib config [flags]                        show or change settings; manages the review token
//	katib version                               print the build version
//
// Input comes from the named file or stdin. The guard report and review
// status go to stderr via the logger; stdout carries only the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"katib/internal/config"
	applog "katib/internal/log"
	"katib/internal/payload"
	"katib/internal/pipeline"
	"katib/internal/review"
	"katib/internal/storage"
	"katib/internal/telemetry"
	"katib/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "classify":
		os.Exit(runClassify(os.Args[2:]))
	case "export":
		os.Exit(runExport(os.Args[2:]))
	case "restore":
		os.Exit(runRestore(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: katib <classify|export|restore|config|version> [flags] [file]")
}

func setup() (config.AppConfig, string) {
	cfg, token, err := config.Load()
	if err != nil {
		cfg = config.Defaults()
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	return cfg, token
}

func readInput(args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	withReview := fs.Bool("review", false, "escalate suspicious lines to the configured review service")
	_ = fs.Parse(args)

	cfg, token := setup()
	raw, err := readInput(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "katib: %v\n", err)
		return 1
	}

	opts := pipeline.Options{}
	if *withReview && (cfg.Review.Enabled || cfg.Review.BaseURL != "") {
		client := review.NewClient(cfg.Review.BaseURL, token, cfg.Review.Model, cfg.Review.ReviewTimeout())
		opts.Reviewer = review.NewReconciler(client)
	}
	if cfg.Telemetry.OptIn {
		tc := telemetry.New(telemetry.Config{OptIn: true, EventsURL: cfg.Telemetry.EventsURL})
		defer tc.Close()
		opts.Telemetry = tc
	}

	res := pipeline.Import(context.Background(), raw, opts)
	if err := printJSON(os.Stdout, res.Blocks); err != nil {
		fmt.Fprintf(os.Stderr, "katib: %v\n", err)
		return 1
	}
	if !res.Guard.Accepted {
		for _, r := range res.Guard.Reasons {
			fmt.Fprintf(os.Stderr, "katib: guard: %s\n", r)
		}
	}
	return 0
}

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	docID := fs.String("doc", "", "document id; stores the emitted marker as the document's latest snapshot")
	storeRoot := fs.String("store", ".", "workspace root holding the snapshot store")
	_ = fs.Parse(args)

	cfg, _ := setup()
	raw, err := readInput(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "katib: %v\n", err)
		return 1
	}
	res := pipeline.Import(context.Background(), raw, pipeline.Options{})
	marker, text, err := pipeline.Export(res.Blocks, cfg.Export.Font, cfg.Export.Size, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "katib: %v\n", err)
		return 1
	}
	if *docID != "" {
		if err := storage.SaveLatest(context.Background(), *storeRoot, *docID, marker, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "katib: snapshot: %v\n", err)
			return 1
		}
	}
	fmt.Print(text)
	return 0
}

func runRestore(args []string) int {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	docID := fs.String("doc", "", "restore from the document's stored snapshot instead of input text")
	storeRoot := fs.String("store", ".", "workspace root holding the snapshot store")
	_ = fs.Parse(args)

	setup()
	var raw string
	if *docID != "" {
		tok, _, ok, err := storage.LoadLatest(context.Background(), *storeRoot, *docID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "katib: snapshot: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "katib: no snapshot stored for document %q\n", *docID)
			return 1
		}
		raw = tok
	} else {
		var err error
		raw, err = readInput(fs.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "katib: %v\n", err)
			return 1
		}
	}
	p, ok := payload.Decode(raw)
	if !ok {
		fmt.Fprintln(os.Stderr, "katib: input carries no valid payload marker")
		return 1
	}
	if err := printJSON(os.Stdout, p.Blocks); err != nil {
		fmt.Fprintf(os.Stderr, "katib: %v\n", err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	reviewURL := fs.String("review-url", "", "set the review service endpoint")
	reviewModel := fs.String("review-model", "", "set the review model name")
	reviewEnabled := fs.Bool("review-enabled", false, "enable or disable review escalation")
	token := fs.String("token", "", "store the review service token in the OS keyring")
	deleteToken := fs.Bool("delete-token", false, "remove the review service token from the OS keyring")
	_ = fs.Parse(args)

	cfg, _ := setup()
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *deleteToken {
		if err := config.DeleteToken(); err != nil {
			fmt.Fprintf(os.Stderr, "katib: delete token: %v\n", err)
			return 1
		}
	}

	changed := false
	if *reviewURL != "" {
		cfg.Review.BaseURL = *reviewURL
		changed = true
	}
	if *reviewModel != "" {
		cfg.Review.Model = *reviewModel
		changed = true
	}
	if set["review-enabled"] {
		cfg.Review.Enabled = *reviewEnabled
		changed = true
	}
	if changed || *token != "" {
		if err := config.Save(cfg, *token); err != nil {
			fmt.Fprintf(os.Stderr, "katib: save config: %v\n", err)
			return 1
		}
		return 0
	}
	if *deleteToken {
		return 0
	}
	// no flags: show the effective configuration (the token never prints)
	if err := printJSON(os.Stdout, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "katib: %v\n", err)
		return 1
	}
	return 0
}
