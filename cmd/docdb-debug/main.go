// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Command docdb-debug inspects a DocDB data directory from the command
// line.
package main

import (
	"fmt"
	"os"

	"github.com/skahler-yuga/yugabyte-db/pkg/docdb"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docdb-debug",
	Short: "inspect a DocDB data directory",
}

var dumpCmd = &cobra.Command{
	Use:   "dump [directory]",
	Short: "dump every key/value pair in a store",
	Long: `
  Decodes and prints every key/value pair in a DocDB store, one line per
  entry. Entries that fail to decode print as raw hex and cause dump to
  exit non-zero, but every entry is still printed.
`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func openStore(dir string) (docdb.Store, error) {
	return docdb.Open(dir, docdb.Options{})
}

func runDump(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	return docdb.DocDBDebugDump(store, os.Stdout)
}
