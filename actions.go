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

package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/cnf"
	"github.com/timodonnell/mhcpred/dataimport"
	"github.com/timodonnell/mhcpred/eval"
	"github.com/timodonnell/mhcpred/eval/lgb"
	"github.com/timodonnell/mhcpred/eval/nn"
	"github.com/timodonnell/mhcpred/eval/twopass"
	"github.com/timodonnell/mhcpred/feats"
	"github.com/timodonnell/mhcpred/pmbec"
	"github.com/timodonnell/mhcpred/stats"
)

const (
	errColor = color.FgHiRed
)

func runActionGenerate(conf *cnf.Conf, storeStats bool) {
	records, _, err := dataimport.ReadBindingData(conf.BindingDataPath, conf.MaxIC50)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	records, _ = dataimport.DeduplicateMedian(records)
	seqs, err := dataimport.ReadPseudoSequences(conf.MHCSeqsPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	ds, err := dataimport.BuildDataset(records, seqs, feats.NewAlphabet())
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	if err := ds.SaveToFile(conf.DatasetPath); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	log.Info().Str("path", conf.DatasetPath).Msg("saved training dataset")

	if storeStats {
		db, err := stats.NewDatabase(conf.StatsDBPath)
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorImportFailed)
		}
		if err := db.Init(); err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorImportFailed)
		}
		if err := db.ImportAssayRecords(records, time.Now()); err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorImportFailed)
		}
	}
}

func loadInitialCoeffs(conf *cnf.Conf) []float64 {
	table, err := pmbec.ReadCoefficients(conf.CoeffTablePath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorGeneralFailure)
	}
	coeffs, err := table.ToVector(feats.NewAlphabet())
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorGeneralFailure)
	}
	return coeffs
}

func loadShuffledDataset(conf *cnf.Conf) *feats.Dataset {
	ds, err := feats.LoadDatasetFromFile(conf.DatasetPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorGeneralFailure)
	}
	ds.Shuffle()
	return ds
}

func storeEvalRun(conf *cnf.Conf, modelType string, numFolds, numSamples int, metrics eval.Metrics) {
	if conf.StatsDBPath == "" {
		return
	}
	db, err := stats.NewDatabase(conf.StatsDBPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		return
	}
	if err := db.Init(); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		return
	}
	if err := db.AddEvalRun(modelType, numFolds, numSamples, metrics); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
	}
}

func runActionCrossval(conf *cnf.Conf, modelType, lgbModelPath string) {
	ds := loadShuffledDataset(conf)
	coeffs := loadInitialCoeffs(conf)
	opts := eval.CrossValOptions{
		NumFolds:        conf.NumFolds,
		BinderThreshold: conf.BinderThreshold,
		Refine: eval.RefineOptions{
			Rounds:    conf.RefineRounds,
			Alpha:     conf.RidgeAlpha,
			Tolerance: conf.ConvergenceTolerance,
		},
	}

	var result *eval.CrossValResult
	var err error
	switch modelType {
	case "refined":
		result, err = eval.CrossValidate(ds, coeffs, opts)
	case "twopass":
		result, err = eval.CrossValidateRegressor(
			ds, coeffs,
			func() eval.Regressor {
				return twopass.New(conf.CategoryBase, twopass.DefaultNumTrees, conf.RidgeAlpha)
			},
			opts,
		)
	case "nn":
		result, err = eval.CrossValidateRegressor(
			ds, coeffs,
			func() eval.Regressor { return nn.NewModel(conf.NNHiddenUnits) },
			opts,
		)
	case "ols":
		result, err = eval.CrossValidateRegressor(
			ds, coeffs,
			func() eval.Regressor { return eval.NewLogLinear(eval.NewOLS()) },
			opts,
		)
	case "lgb":
		runLGBEvaluation(conf, ds, coeffs, lgbModelPath)
		return
	default:
		color.New(errColor).Fprintf(os.Stderr, "unknown model type: %s\n", modelType)
		os.Exit(exitErrorGeneralFailure)
	}
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorEvaluationFailed)
	}

	eval.PrintCrossValReport(result)
	baseline := eval.BaselineAccuracy(ds.Y, conf.BinderThreshold)
	if result.Mean.Accuracy < baseline {
		eval.Warnf("model accuracy %.3f is below the constant-classifier baseline %.3f\n",
			result.Mean.Accuracy, baseline)
	}
	storeEvalRun(conf, modelType, opts.NumFolds, ds.Len(), result.Mean)
}

// runLGBEvaluation scores a pre-trained LightGBM booster on the whole
// dataset. The booster cannot be refitted per fold, so there is no
// cross-validation here, just a single evaluation pass.
func runLGBEvaluation(conf *cnf.Conf, ds *feats.Dataset, coeffs []float64, modelPath string) {
	if modelPath == "" {
		color.New(errColor).Fprintln(os.Stderr, "lgb evaluation requires -lgb-model")
		os.Exit(exitErrorGeneralFailure)
	}
	model, err := lgb.LoadFromFile(modelPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorEvaluationFailed)
	}
	log.Info().Str("model", model.GetInfo()).Msg("loaded booster")
	features, err := feats.Materialize(ds.X, coeffs)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorEvaluationFailed)
	}
	pred, err := model.Predict(features)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorEvaluationFailed)
	}
	metrics, err := eval.Score(pred, ds.Y, ds.W, conf.BinderThreshold)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorEvaluationFailed)
	}
	fmt.Printf(
		"MAE %.1f, accuracy %.3f, sensitivity %.3f, specificity %.3f\n",
		metrics.MAE, metrics.Accuracy, metrics.Sensitivity, metrics.Specificity,
	)
	storeEvalRun(conf, "lgb", 1, ds.Len(), metrics)
}

func runActionTrain(conf *cnf.Conf) {
	ds := loadShuffledDataset(conf)
	coeffs := loadInitialCoeffs(conf)
	model, err := eval.Refine(ds.X, ds.Y, ds.W, coeffs, eval.RefineOptions{
		Rounds:    conf.RefineRounds,
		Alpha:     conf.RidgeAlpha,
		Tolerance: conf.ConvergenceTolerance,
	})
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorTrainingFailed)
	}
	if err := model.SaveToFile(conf.ModelPath); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorTrainingFailed)
	}
	log.Info().
		Str("path", conf.ModelPath).
		Bool("converged", model.Converged).
		Int("rounds", len(model.Rounds)).
		Msg("trained and saved refined model")
}

func runActionPredict(conf *cnf.Conf, allele, peptide string) {
	if allele == "" || peptide == "" {
		color.New(errColor).Fprintln(os.Stderr, "both ALLELE and PEPTIDE arguments are required")
		os.Exit(exitErrorPredictionFailed)
	}
	model, err := eval.LoadRefinedModelFromFile(conf.ModelPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorPredictionFailed)
	}
	seqs, err := dataimport.ReadPseudoSequences(conf.MHCSeqsPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorPredictionFailed)
	}
	encoder, err := feats.NewEncoder(feats.NewAlphabet(), seqs.Length())
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorPredictionFailed)
	}
	windows, ic50, err := predictPeptide(model, encoder, seqs, allele, peptide)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorPredictionFailed)
	}
	for i, w := range windows {
		fmt.Printf("window %d: %.1f nM\n", i+1, w)
	}
	bold := color.New(color.Bold)
	bold.Printf("predicted IC50: %.1f nM", ic50)
	if ic50 <= conf.BinderThreshold {
		color.New(color.FgGreen).Printf("  (binder at %.0f nM threshold)\n", conf.BinderThreshold)

	} else {
		fmt.Printf("  (non-binder at %.0f nM threshold)\n", conf.BinderThreshold)
	}
}

// predictPeptide scores each 9-residue window of the peptide against the
// allele's pseudosequence and aggregates the window predictions with a
// geometric mean, which averages them in the model's log-affinity space.
func predictPeptide(
	model *eval.RefinedModel,
	encoder *feats.Encoder,
	seqs *dataimport.PseudoSequences,
	allele, peptide string,
) (windows []float64, aggregate float64, err error) {
	normalized := dataimport.NormalizeAllele(allele)
	mhcSeq, ok := seqs.Lookup(normalized)
	if !ok {
		return nil, 0, fmt.Errorf(
			"unknown allele %s (closest known: %s)", normalized, seqs.Nearest(normalized))
	}
	vectors, _, err := encoder.EncodePeptide(peptide, mhcSeq)
	if err != nil {
		return nil, 0, err
	}
	windows, err = model.Predict(vectors)
	if err != nil {
		return nil, 0, err
	}
	var logSum float64
	for _, w := range windows {
		logSum += math.Log(w)
	}
	aggregate = math.Exp(logSum / float64(len(windows)))
	return windows, aggregate, nil
}
