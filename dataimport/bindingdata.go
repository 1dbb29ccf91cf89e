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

package dataimport

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// AssayRecord is one cleaned binding measurement.
type AssayRecord struct {
	Allele  string
	Epitope string
	IC50    float64
}

// ImportStats summarizes a binding-data import.
type ImportStats struct {
	NumRead       int
	NumFiltered   int
	NumDuplicates int
}

// ReadBindingData loads raw binding-assay records from a CSV file with
// "MHC Allele", "Epitope" and "IC50" columns. Allele names are
// normalized, epitopes trimmed and upper-cased; records with epitopes
// shorter than 9 residues or IC50 outside (0, maxIC50] are dropped.
func ReadBindingData(path string, maxIC50 float64) ([]AssayRecord, ImportStats, error) {
	var stats ImportStats
	file, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read binding data: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read binding data: %w", err)
	}
	if len(rows) < 2 {
		return nil, stats, fmt.Errorf("binding data file %s is empty", path)
	}
	alleleCol, epitopeCol, ic50Col := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case "MHC Allele":
			alleleCol = i
		case "Epitope":
			epitopeCol = i
		case "IC50":
			ic50Col = i
		}
	}
	if alleleCol < 0 || epitopeCol < 0 || ic50Col < 0 {
		return nil, stats, fmt.Errorf(
			"binding data file %s must have 'MHC Allele', 'Epitope' and 'IC50' columns", path)
	}

	records := make([]AssayRecord, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		stats.NumRead++
		ic50, err := strconv.ParseFloat(strings.TrimSpace(row[ic50Col]), 64)
		if err != nil {
			return nil, stats, fmt.Errorf(
				"binding data file %s: row %d: invalid IC50: %w", path, rowIdx+2, err)
		}
		rec := AssayRecord{
			Allele:  NormalizeAllele(row[alleleCol]),
			Epitope: strings.ToUpper(strings.TrimSpace(row[epitopeCol])),
			IC50:    ic50,
		}
		if len(rec.Epitope) < 9 || rec.IC50 <= 0 || rec.IC50 > maxIC50 {
			stats.NumFiltered++
			continue
		}
		records = append(records, rec)
	}
	log.Info().
		Str("file", path).
		Int("numRead", stats.NumRead).
		Int("numFiltered", stats.NumFiltered).
		Msg("loaded binding assay records")
	return records, stats, nil
}

// DeduplicateMedian reduces repeated measurements of the same
// (allele, epitope) pair to a single record carrying the median IC50.
// Output order follows the first occurrence of each pair.
func DeduplicateMedian(records []AssayRecord) ([]AssayRecord, int) {
	type group struct {
		order  int
		values []float64
	}
	groups := make(map[string]*group)
	keys := make([]string, 0, len(records))
	meta := make(map[string]AssayRecord)
	for _, rec := range records {
		key := rec.Allele + "/" + rec.Epitope
		g, ok := groups[key]
		if !ok {
			g = &group{order: len(keys)}
			groups[key] = g
			keys = append(keys, key)
			meta[key] = rec
		}
		g.values = append(g.values, rec.IC50)
	}

	numDuplicates := len(records) - len(keys)
	out := make([]AssayRecord, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		rec := meta[key]
		rec.IC50 = median(g.values)
		out = append(out, rec)
	}
	if numDuplicates > 0 {
		log.Info().
			Int("numDuplicates", numDuplicates).
			Int("numUnique", len(out)).
			Msg("deduplicated binding records by median IC50")
	}
	return out, numDuplicates
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
