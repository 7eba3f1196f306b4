// Copyright 2026 modelworks
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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelworks/refit/cmd/refit/commands"
	"github.com/modelworks/refit/cmd/refit/opts"
)

func main() {
	root := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:           "refit",
		Short:         "Rename CAD document trees and repair the references between them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging("")
			built, err := newRootOpts(cmd.Context())
			if err != nil {
				return err
			}
			setupLogging(built.Config.LogLevel)
			*root = *built
			return nil
		},
	}
	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewServeCmd(root),
		commands.NewAnalyzeCmd(root),
		commands.NewRenameCmd(root),
		commands.NewDrawingsCmd(root),
		commands.NewPropsCmd(root),
		commands.NewCleanCmd(root),
		newVersionCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs none of the shared dependencies.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(FormatVersion())
		},
	}
}
