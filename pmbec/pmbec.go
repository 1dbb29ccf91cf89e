// Copyright 2025 Tim O'Donnell
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pmbec loads a reference pairwise amino-acid coefficient table
// (e.g. the PMBEC covariance matrix) used to seed the iterative
// coefficient refinement.
package pmbec

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/timodonnell/mhcpred/feats"
)

// Table maps two-letter amino-acid pair keys ("AC") to interaction
// coefficients. A complete table has exactly one entry per ordered pair.
type Table map[string]float64

// ReadCoefficients loads a coefficient matrix from a CSV file laid out as
// a 20x20 matrix: a header row with the 20 column letters, then one row
// per letter with 20 values. The cell (row r, column c) becomes the
// coefficient of the pair key r+c.
func ReadCoefficients(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coefficient table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read coefficient table: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("coefficient table %s is empty", path)
	}
	header := rows[0]
	// tolerate a leading empty cell above the row-letter column
	if len(header) > 0 && header[0] == "" {
		header = header[1:]
	}
	if len(header) != feats.NumAminoAcids {
		return nil, fmt.Errorf(
			"coefficient table %s: expected %d column letters, got %d",
			path, feats.NumAminoAcids, len(header))
	}

	table := make(Table, feats.NumAminoAcidPairs)
	for _, row := range rows[1:] {
		if len(row) != feats.NumAminoAcids+1 {
			return nil, fmt.Errorf(
				"coefficient table %s: row %q has %d cells, expected %d",
				path, row[0], len(row), feats.NumAminoAcids+1)
		}
		rowLetter := row[0]
		if len(rowLetter) != 1 {
			return nil, fmt.Errorf("coefficient table %s: invalid row letter %q", path, rowLetter)
		}
		for i, cell := range row[1:] {
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf(
					"coefficient table %s: pair %s%s: %w", path, rowLetter, header[i], err)
			}
			table[rowLetter+header[i]] = value
		}
	}
	log.Debug().Str("file", path).Int("numPairs", len(table)).Msg("loaded reference coefficient table")
	return table, nil
}

// ToVector re-encodes the table as a dense coefficient vector indexed by
// the alphabet's pair index. A missing pair is a fatal load error: the
// refinement loop requires a fully populated initial vector.
func (t Table) ToVector(alphabet *feats.Alphabet) ([]float64, error) {
	vec := make([]float64, feats.NumAminoAcidPairs)
	for idx := range vec {
		key, err := alphabet.PairKey(idx)
		if err != nil {
			return nil, err
		}
		value, ok := t[key]
		if !ok {
			return nil, fmt.Errorf("coefficient table is missing pair %s", key)
		}
		vec[idx] = value
	}
	return vec, nil
}
