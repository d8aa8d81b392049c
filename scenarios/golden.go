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

package scenarios

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// VerifyGolden compares actual with the golden file at path. When update is
// true the file is rewritten instead.
func VerifyGolden(path, actual string, update bool) error {
	actual = strings.TrimSpace(actual)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(actual+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write golden file %s: %w", path, err)
		}
		log.Printf("Updated golden file: %s", path)
		return nil
	}

	expectedBytes, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("golden file missing: %s. Run with UPDATE_GOLDENS=true to create it.\nActual content:\n%s", path, actual)
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file %s: %w", path, err)
	}
	expected := strings.TrimSpace(string(expectedBytes))
	if actual == expected {
		return nil
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected + "\n"),
		B:        difflib.SplitLines(actual + "\n"),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	return fmt.Errorf("golden mismatch for %s:\n%s", filepath.Base(path), diff)
}
