// Copyright 2025 Poiesic Systems
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


package main

import (
	"context"
	"flag"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestDraftCreateCommandFlags(t *testing.T) {
	app := &cli.App{
		Name: "substrate",
		Commands: []*cli.Command{
			{
				Name: "draft",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Action: func(c *cli.Context) error { return nil },
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "workspace", Required: true},
							&cli.StringFlag{Name: "name", Required: true},
							&cli.StringFlag{Name: "embedding-model", Required: true},
							&cli.StringFlag{Name: "embedding-host", Value: "http://localhost:11434/v1"},
							&cli.StringFlag{Name: "strategy", Value: "recursive"},
							&cli.IntFlag{Name: "max-size", Value: 1000},
							&cli.IntFlag{Name: "overlap", Value: 100},
						},
					},
				},
			},
		},
	}

	t.Run("embedding-model is required", func(t *testing.T) {
		err := app.Run([]string{"substrate", "draft", "create", "--workspace", "ws1", "--name", "Docs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("workspace is required", func(t *testing.T) {
		err := app.Run([]string{"substrate", "draft", "create", "--name", "Docs", "--embedding-model", "embeddinggemma"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workspace")
	})

	t.Run("strategy defaults to recursive", func(t *testing.T) {
		cmd := app.Commands[0].Subcommands[0]
		var strategyFlag *cli.StringFlag
		for _, f := range cmd.Flags {
			if sf, ok := f.(*cli.StringFlag); ok && sf.Name == "strategy" {
				strategyFlag = sf
				break
			}
		}
		require.NotNil(t, strategyFlag)
		assert.Equal(t, "recursive", strategyFlag.Value)
	})
}

func TestParseID(t *testing.T) {
	t.Run("valid ID", func(t *testing.T) {
		id, err := parseID("18446744073709551615")
		require.NoError(t, err)
		assert.Equal(t, uint64(18446744073709551615), uint64(id))
	})

	t.Run("empty argument", func(t *testing.T) {
		_, err := parseID("")
		assert.Error(t, err)
	})

	t.Run("non-numeric argument", func(t *testing.T) {
		_, err := parseID("abc")
		assert.Error(t, err)
	})
}

func TestSetupLogger(t *testing.T) {
	makeContext := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(&cli.App{}, set, nil)
	}

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
			err := setupLogger(makeContext(level))
			assert.NoError(t, err, "level %s", level)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		err := setupLogger(makeContext("verbose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("debug level enables debug logging", func(t *testing.T) {
		require.NoError(t, setupLogger(makeContext("debug")))
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	})
}
