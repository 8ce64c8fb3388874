// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command zipkin-convert re-encodes a span payload read from stdin, e.g.
//
//	zipkin-convert --to V2_PROTO3 < spans.json > spans.pb
//
// With --send the result is posted to the collector configured through the
// ZIPKIN_* environment variables instead of being written to stdout.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/logging"
	"github.com/openzipkin-contrib/zipkin-go-scope/transport"
)

type options struct {
	from    string
	to      string
	send    bool
	verbose bool
}

func main() {
	if err := newCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand(in io.Reader, out io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "zipkin-convert",
		Short:        "Convert zipkin span payloads between encodings",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zap.NewNop()
			if opts.verbose {
				logger = zap.New(zapcore.NewCore(
					zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
					zapcore.AddSync(cmd.ErrOrStderr()),
					zap.DebugLevel,
				))
			}
			defer func() { _ = logger.Sync() }()
			return run(opts, in, out, logging.NewZapLogger(logger))
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "encoding of the input; detected when empty")
	cmd.Flags().StringVar(&opts.to, "to", encoding.V2JSON.String(), "encoding of the output")
	cmd.Flags().BoolVar(&opts.send, "send", false, "post the result to the collector set by ZIPKIN_BASE_URL")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

func run(opts options, in io.Reader, out io.Writer, logger logging.Logger) error {
	to, err := encoding.ParseEncoding(opts.to)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	var from encoding.Encoding
	if opts.from == "" {
		if from, err = encoding.Detect(data); err != nil {
			return err
		}
		_ = logger.Log("msg", "detected input encoding", "encoding", from.String())
	} else if from, err = encoding.ParseEncoding(opts.from); err != nil {
		return err
	}

	converted, err := encoding.ConvertFrom(data, from, to)
	if err != nil {
		return err
	}

	if !opts.send {
		_, err = out.Write(converted)
		return errors.Wrap(err, "writing output")
	}

	cfg, err := transport.HTTPConfigFromEnv()
	if err != nil {
		return err
	}
	cfg.Encoding = to.String()
	h, err := cfg.NewHandler(transport.HTTPLogger(logger))
	if err != nil {
		return err
	}
	if err := h.Send(converted); err != nil {
		return err
	}
	_ = logger.Log("msg", "sent spans", "url", h.URL(), "bytes", len(converted))
	_, err = fmt.Fprintf(out, "sent %d bytes to %s\n", len(converted), h.URL())
	return err
}
