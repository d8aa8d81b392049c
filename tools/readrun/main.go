// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rodaine/table"
	"github.com/ttbt-io/skirmish/backend"
)

var (
	dataDir = flag.String("data-dir", "data", "Directory for run history")
	limit   = flag.Int("limit", 20, "Number of runs to list. 0 lists all")
)

// main lists the recorded runs, or prints the runs named on the command line
// as JSON.
func main() {
	flag.Parse()
	store, err := backend.OpenStorage(*dataDir, os.Getenv("SKIRMISH_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	runs := backend.NewRunStore(*dataDir, store)

	if flag.NArg() == 0 {
		list, err := runs.ListRuns(*limit)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		t := table.New("Run", "Started", "Duration", "Status", "Passed", "Failed", "Skipped").WithWriter(os.Stdout)
		for _, r := range list {
			t.AddRow(r.ID,
				time.UnixMilli(r.StartedAt).Format(time.RFC3339),
				(time.Duration(r.FinishedAt-r.StartedAt) * time.Millisecond).String(),
				r.Status, r.Passed, r.Failed, r.Skipped)
		}
		t.Print()
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, id := range flag.Args() {
		run, err := runs.LoadRun(id)
		if err != nil {
			log.Printf("%s: %v", id, err)
			continue
		}
		fmt.Printf("=========== %s ===========\n", id)
		if err := enc.Encode(run); err != nil {
			log.Printf("JSON: %s: %v", id, err)
		}
	}
}
