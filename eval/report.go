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

package eval

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// PrintCrossValReport writes a human-readable cross-validation summary
// to stdout.
func PrintCrossValReport(result *CrossValResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	bold.Println("Cross-validation results")
	fmt.Println("fold\ttrain\ttest\tMAE\taccuracy\tsensitivity\tspecificity")
	for _, f := range result.Folds {
		fmt.Printf(
			"%d\t%d\t%d\t%.1f\t%.3f\t%.3f\t%.3f\n",
			f.Fold, f.TrainSize, f.TestSize,
			f.Metrics.MAE, f.Metrics.Accuracy, f.Metrics.Sensitivity, f.Metrics.Specificity,
		)
	}
	bold.Print("overall: ")
	green.Printf(
		"MAE %.1f, accuracy %.3f, sensitivity %.3f, specificity %.3f\n",
		result.Mean.MAE, result.Mean.Accuracy, result.Mean.Sensitivity, result.Mean.Specificity,
	)
}

// BaselineAccuracy returns the best constant-classifier accuracy for the
// binder/non-binder split, a sanity floor for reported model accuracy.
func BaselineAccuracy(y []float64, threshold float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var binders float64
	for _, v := range y {
		if v <= threshold {
			binders++
		}
	}
	frac := binders / float64(len(y))
	if frac > 1-frac {
		return frac
	}
	return 1 - frac
}

// Warnf prints a colored warning to stderr, for CLI-level notices that
// should stand out from structured logs.
func Warnf(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format, args...)
}
