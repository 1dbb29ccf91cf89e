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

package stats

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/dataimport"
	"github.com/timodonnell/mhcpred/eval"
)

type Database struct {
	db *sql.DB
	tx *sql.Tx
}

func (database *Database) createAssayRecordsTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE assay_records (" +
			"id TEXT PRIMARY KEY NOT NULL, " +
			"datetime INTEGER NOT NULL, " +
			"allele TEXT NOT NULL, " +
			"epitope TEXT NOT NULL, " +
			"ic50 FLOAT NOT NULL, " +
			"trainingExclude INT NOT NULL DEFAULT 0" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `assay_records`")
	return nil
}

func (database *Database) createEvalRunsTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE eval_runs (" +
			"id TEXT PRIMARY KEY NOT NULL, " +
			"datetime INTEGER NOT NULL, " +
			"modelType TEXT NOT NULL, " +
			"numFolds INTEGER NOT NULL, " +
			"numSamples INTEGER NOT NULL, " +
			"mae FLOAT NOT NULL, " +
			"accuracy FLOAT NOT NULL, " +
			"sensitivity FLOAT, " +
			"specificity FLOAT" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `eval_runs`")
	return nil
}

func (database *Database) tableExists(tn string) (bool, error) {
	ans := database.db.QueryRow(
		fmt.Sprintf("SELECT name FROM sqlite_master WHERE type='table' AND name='%s'", tn))
	var nm sql.NullString
	err := ans.Scan(&nm)
	if err == sql.ErrNoRows {
		return false, nil

	} else if err != nil {
		return false, fmt.Errorf("failed to determine existence of table %s: %w", tn, err)
	}
	return true, nil
}

func (database *Database) Init() error {
	ex, err := database.tableExists("assay_records")
	if err != nil {
		return fmt.Errorf("failed to init table assay_records: %w", err)
	}
	if ex {
		log.Info().Str("table", "assay_records").Msg("table already exists")

	} else {
		if err := database.createAssayRecordsTable(); err != nil {
			return fmt.Errorf("failed to create table assay_records: %w", err)
		}
	}

	ex, err = database.tableExists("eval_runs")
	if err != nil {
		return fmt.Errorf("failed to init table eval_runs: %w", err)
	}
	if ex {
		log.Info().Str("table", "eval_runs").Msg("table already exists")

	} else {
		if err := database.createEvalRunsTable(); err != nil {
			return fmt.Errorf("failed to create table eval_runs: %w", err)
		}
	}

	return nil
}

// executor abstracts the write target so that single statements run
// either directly or inside a managed transaction.
type executor interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (database *Database) conn() executor {
	if database.tx != nil {
		return database.tx
	}
	return database.db
}

func (database *Database) StartTx() error {
	if database.tx != nil {
		panic("a transaction is already running")
	}
	var err error
	database.tx, err = database.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	return nil
}

func (database *Database) CommitTx() error {
	if database.tx == nil {
		panic("no transaction running")
	}
	err := database.tx.Commit()
	database.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (database *Database) RollbackTx() error {
	if database.tx == nil {
		panic("no transaction running")
	}
	err := database.tx.Rollback()
	database.tx = nil
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// AddRecord stores one assay record, writing through the managed
// transaction when one is running.
func (database *Database) AddRecord(rec DBRecord) error {
	_, err := database.conn().Exec(
		"INSERT OR REPLACE INTO assay_records (id, datetime, allele, epitope, ic50, trainingExclude) "+
			"VALUES (?, ?, ?, ?, ?, ?)",
		IdempotentID(time.Unix(rec.Datetime, 0), rec.Allele, rec.Epitope),
		rec.Datetime,
		rec.Allele,
		rec.Epitope,
		rec.IC50,
		rec.TrainingExclude,
	)
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}
	return nil
}

// ImportAssayRecords stores cleaned binding measurements in a single
// managed transaction, all with the provided import time.
func (database *Database) ImportAssayRecords(records []dataimport.AssayRecord, imported time.Time) error {
	if err := database.StartTx(); err != nil {
		return fmt.Errorf("failed to import assay records: %w", err)
	}
	for _, rec := range records {
		err := database.AddRecord(DBRecord{
			Datetime: imported.Unix(),
			Allele:   rec.Allele,
			Epitope:  rec.Epitope,
			IC50:     rec.IC50,
		})
		if err != nil {
			database.RollbackTx()
			return fmt.Errorf("failed to import assay records: %w", err)
		}
	}
	if err := database.CommitTx(); err != nil {
		return fmt.Errorf("failed to import assay records: %w", err)
	}
	log.Info().Int("numRecords", len(records)).Msg("imported assay records into stats database")
	return nil
}

// GetAllRecords loads stored assay records, optionally filtered by
// allele or training exclusion.
func (database *Database) GetAllRecords(filter ListFilter) ([]DBRecord, error) {
	query := "SELECT id, datetime, allele, epitope, ic50, trainingExclude " +
		"FROM assay_records WHERE %s ORDER BY allele, epitope"
	whereChunks := make([]string, 0, 3)
	args := make([]any, 0, 2)
	whereChunks = append(whereChunks, "1 = 1")
	if filter.Allele != nil {
		whereChunks = append(whereChunks, "allele = ?")
		args = append(args, *filter.Allele)
	}
	if filter.TrainingExcluded != nil {
		if *filter.TrainingExcluded {
			whereChunks = append(whereChunks, "trainingExclude = 1")

		} else {
			whereChunks = append(whereChunks, "trainingExclude = 0")
		}
	}

	rows, err := database.db.Query(
		fmt.Sprintf(query, strings.Join(whereChunks, " AND ")), args...)
	if err != nil {
		return []DBRecord{}, fmt.Errorf("failed to fetch all records: %w", err)
	}
	ans := make([]DBRecord, 0, 500)
	for rows.Next() {
		var rec DBRecord
		err := rows.Scan(
			&rec.ID,
			&rec.Datetime,
			&rec.Allele,
			&rec.Epitope,
			&rec.IC50,
			&rec.TrainingExclude,
		)
		if err != nil {
			return []DBRecord{}, fmt.Errorf("failed to fetch all records: %w", err)
		}
		ans = append(ans, rec)
	}
	return ans, nil
}

// AddEvalRun stores one cross-validation result.
func (database *Database) AddEvalRun(modelType string, numFolds, numSamples int, metrics eval.Metrics) error {
	now := time.Now()
	_, err := database.db.Exec(
		"INSERT INTO eval_runs (id, datetime, modelType, numFolds, numSamples, mae, accuracy, sensitivity, specificity) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		IdempotentID(now, modelType, fmt.Sprintf("%d/%d", numFolds, numSamples)),
		now.Unix(),
		modelType,
		numFolds,
		numSamples,
		metrics.MAE,
		metrics.Accuracy,
		metrics.Sensitivity,
		metrics.Specificity,
	)
	if err != nil {
		return fmt.Errorf("failed to add eval run: %w", err)
	}
	return nil
}

// GetEvalRuns returns stored cross-validation results, newest first.
func (database *Database) GetEvalRuns() ([]EvalRun, error) {
	rows, err := database.db.Query(
		"SELECT id, datetime, modelType, numFolds, numSamples, mae, accuracy, sensitivity, specificity " +
			"FROM eval_runs ORDER BY datetime DESC")
	if err != nil {
		return []EvalRun{}, fmt.Errorf("failed to fetch eval runs: %w", err)
	}
	ans := make([]EvalRun, 0, 50)
	for rows.Next() {
		var run EvalRun
		var sens, spec sql.NullFloat64
		err := rows.Scan(
			&run.ID,
			&run.Datetime,
			&run.ModelType,
			&run.NumFolds,
			&run.NumSamples,
			&run.MAE,
			&run.Accuracy,
			&sens,
			&spec,
		)
		if err != nil {
			return []EvalRun{}, fmt.Errorf("failed to fetch eval runs: %w", err)
		}
		if sens.Valid {
			run.Sensitivity = sens.Float64
		}
		if spec.Valid {
			run.Specificity = spec.Float64
		}
		ans = append(ans, run)
	}
	return ans, nil
}

func NewDatabase(path string) (*Database, error) {
	dbConn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	return &Database{db: dbConn}, nil
}
