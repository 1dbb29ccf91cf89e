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

package cnf

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/eval"
	"github.com/timodonnell/mhcpred/eval/nn"
)

const (
	dfltServerWriteTimeoutSecs = 30
	dfltTimeZone               = "America/New_York"
	dfltMaxIC50                = 1e6
	dfltCategoryBase           = 50.0
)

type Conf struct {
	srcPath                string
	Logging                logging.LoggingConf `json:"logging"`
	ListenAddress          string              `json:"listenAddress"`
	PublicURL              string              `json:"publicUrl"`
	ListenPort             int                 `json:"listenPort"`
	ServerReadTimeoutSecs  int                 `json:"serverReadTimeoutSecs"`
	ServerWriteTimeoutSecs int                 `json:"serverWriteTimeoutSecs"`
	CorsAllowedOrigins     []string            `json:"corsAllowedOrigins"`
	TimeZone               string              `json:"timeZone"`

	// BindingDataPath points at the raw assay measurements CSV
	// ("MHC Allele", "Epitope", "IC50" columns).
	BindingDataPath string `json:"bindingDataPath"`

	// MHCSeqsPath points at the allele pseudosequence table CSV.
	MHCSeqsPath string `json:"mhcSeqsPath"`

	// CoeffTablePath points at the 20x20 amino-acid similarity matrix
	// used to seed the refinement.
	CoeffTablePath string `json:"coeffTablePath"`

	DatasetPath string `json:"datasetPath"`
	ModelPath   string `json:"modelPath"`
	StatsDBPath string `json:"statsDbPath"`

	RefineRounds int     `json:"refineRounds"`
	RidgeAlpha   float64 `json:"ridgeAlpha"`
	NumFolds     int     `json:"numFolds"`

	// BinderThreshold is the IC50 (nM) below which a peptide counts
	// as a binder in classification metrics.
	BinderThreshold float64 `json:"binderThreshold"`

	// MaxIC50 caps the affinities accepted during import. Values above
	// it are typically qualitative ("greater than") measurements.
	MaxIC50 float64 `json:"maxIC50"`

	// CategoryBase is the log base used by the two-pass model to bin
	// affinities into coarse categories.
	CategoryBase float64 `json:"categoryBase"`

	// ConvergenceTolerance stops refinement early once the largest
	// coefficient change in a round drops below it. Zero disables
	// the check.
	ConvergenceTolerance float64 `json:"convergenceTolerance"`

	// NNHiddenUnits sets the first hidden layer width of the neural
	// model variant. Zero means the model's built-in default.
	NNHiddenUnits int `json:"nnHiddenUnits"`
}

func (conf *Conf) GetSourcePath() string {
	return conf.srcPath
}

func LoadConfig(path string) *Conf {
	if path == "" {
		log.Fatal().Msg("Cannot load config - path not specified")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	var conf Conf
	conf.srcPath = path
	err = json.Unmarshal(rawData, &conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	return &conf
}

func ValidateAndDefaults(conf *Conf) {
	if conf.ServerWriteTimeoutSecs == 0 {
		conf.ServerWriteTimeoutSecs = dfltServerWriteTimeoutSecs
		log.Warn().Msgf(
			"serverWriteTimeoutSecs not specified, using default: %d",
			dfltServerWriteTimeoutSecs,
		)
	}
	if conf.PublicURL == "" {
		conf.PublicURL = fmt.Sprintf("http://%s", conf.ListenAddress)
		log.Warn().Str("address", conf.PublicURL).Msg("publicUrl not set, using listenAddress")
	}

	if conf.TimeZone == "" {
		conf.TimeZone = dfltTimeZone
		log.Warn().
			Str("timeZone", dfltTimeZone).
			Msg("time zone not specified, using default")
	}
	if _, err := time.LoadLocation(conf.TimeZone); err != nil {
		log.Fatal().Err(err).Msg("invalid time zone")
	}

	if conf.RefineRounds == 0 {
		conf.RefineRounds = eval.DefaultRefineRounds
		log.Warn().
			Int("refineRounds", conf.RefineRounds).
			Msg("refineRounds not specified, using default")
	}
	if conf.RidgeAlpha == 0 {
		conf.RidgeAlpha = eval.DefaultRidgeAlpha
		log.Warn().
			Float64("ridgeAlpha", conf.RidgeAlpha).
			Msg("ridgeAlpha not specified, using default")
	}
	if conf.NumFolds == 0 {
		conf.NumFolds = eval.DefaultNumFolds
		log.Warn().
			Int("numFolds", conf.NumFolds).
			Msg("numFolds not specified, using default")
	}
	if conf.BinderThreshold == 0 {
		conf.BinderThreshold = eval.DefaultBinderThreshold
		log.Warn().
			Float64("binderThreshold", conf.BinderThreshold).
			Msg("binderThreshold not specified, using default")
	}
	if conf.MaxIC50 == 0 {
		conf.MaxIC50 = dfltMaxIC50
	}
	if conf.CategoryBase == 0 {
		conf.CategoryBase = dfltCategoryBase
	}
	if conf.NNHiddenUnits == 0 {
		conf.NNHiddenUnits = nn.DefaultHiddenUnits
	}
	if conf.ConvergenceTolerance < 0 {
		log.Fatal().Msg("convergenceTolerance must not be negative")
	}
}
