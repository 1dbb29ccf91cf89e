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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/czcorpus/cnc-gokit/logging"

	"github.com/timodonnell/mhcpred/cnf"
)

const (
	actionGenerate = "generate"
	actionCrossval = "crossval"
	actionTrain    = "train"
	actionPredict  = "predict"
	actionServer   = "server"
	actionVersion  = "version"
	actionHelp     = "help"

	exitErrorGeneralFailure = iota
	exitErrorImportFailed
	exitErrorTrainingFailed
	exitErrorEvaluationFailed
	exitErrorPredictionFailed
)

var (
	version   string
	buildDate string
	gitCommit string
)

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "MHCPRED - an MHC class I binding affinity predictor\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\timport assay data and build the training dataset\n", actionGenerate)
	fmt.Fprintf(os.Stderr, "\t%s\tcross-validate a model variant on the dataset\n", actionCrossval)
	fmt.Fprintf(os.Stderr, "\t%s\t\ttrain the refined model on the full dataset\n", actionTrain)
	fmt.Fprintf(os.Stderr, "\t%s\t\tpredict affinity for a single peptide/allele pair\n", actionPredict)
	fmt.Fprintf(os.Stderr, "\t%s\t\trun the prediction HTTP API\n", actionServer)
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\nUse `mhcpred help ACTION` for information about a specific action\n\n")
}

func setup(confPath string) *cnf.Conf {
	conf := cnf.LoadConfig(confPath)
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	cnf.ValidateAndDefaults(conf)
	return conf
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func runActionVersion(ver VersionInfo) {
	fmt.Fprintln(os.Stderr, "mhcpred version: ", ver)
}

func main() {
	version := VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdGenerate := flag.NewFlagSet(actionGenerate, flag.ExitOnError)
	generateStoreStats := cmdGenerate.Bool(
		"store-stats", false,
		"if set, cleaned assay records are also written to the stats database")
	cmdGenerate.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n",
			filepath.Base(os.Args[0]), actionGenerate)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdGenerate.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nImport binding data and encode the training dataset\n")
	}

	cmdCrossval := flag.NewFlagSet(actionCrossval, flag.ExitOnError)
	crossvalModel := cmdCrossval.String(
		"model", "refined",
		"model variant to evaluate (refined, twopass, nn, ols, lgb)")
	crossvalLGBPath := cmdCrossval.String(
		"lgb-model", "",
		"path to a LightGBM text model file (required for -model lgb)")
	cmdCrossval.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n",
			filepath.Base(os.Args[0]), actionCrossval)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdCrossval.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCross-validate a model variant on the generated dataset\n")
	}

	cmdTrain := flag.NewFlagSet(actionTrain, flag.ExitOnError)
	cmdTrain.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n",
			filepath.Base(os.Args[0]), actionTrain)
		fmt.Fprintf(os.Stderr, "\nTrain the refined model on the full dataset and save it\n")
	}

	cmdPredict := flag.NewFlagSet(actionPredict, flag.ExitOnError)
	cmdPredict.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json ALLELE PEPTIDE\n",
			filepath.Base(os.Args[0]), actionPredict)
		fmt.Fprintf(os.Stderr, "\nPredict binding affinity for a peptide/allele pair\n")
	}

	cmdServer := flag.NewFlagSet(actionServer, flag.ExitOnError)
	cmdServer.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n",
			filepath.Base(os.Args[0]), actionServer)
		fmt.Fprintf(os.Stderr, "\nRun the prediction HTTP API\n")
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdVersion.Usage = func() {
		cmdVersion.PrintDefaults()
	}

	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)
	cmdHelp.Usage = func() {
		cmdHelp.PrintDefaults()
	}

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		if subj == "" {
			topLevelUsage()
			return
		}
		switch subj {
		case actionGenerate:
			cmdGenerate.Usage()
		case actionCrossval:
			cmdCrossval.Usage()
		case actionTrain:
			cmdTrain.Usage()
		case actionPredict:
			cmdPredict.Usage()
		case actionServer:
			cmdServer.Usage()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionGenerate:
		cmdGenerate.Parse(os.Args[2:])
		conf := setup(cmdGenerate.Arg(0))
		runActionGenerate(conf, *generateStoreStats)
	case actionCrossval:
		cmdCrossval.Parse(os.Args[2:])
		conf := setup(cmdCrossval.Arg(0))
		runActionCrossval(conf, *crossvalModel, *crossvalLGBPath)
	case actionTrain:
		cmdTrain.Parse(os.Args[2:])
		conf := setup(cmdTrain.Arg(0))
		runActionTrain(conf)
	case actionPredict:
		cmdPredict.Parse(os.Args[2:])
		conf := setup(cmdPredict.Arg(0))
		runActionPredict(conf, cmdPredict.Arg(1), cmdPredict.Arg(2))
	case actionServer:
		cmdServer.Parse(os.Args[2:])
		conf := setup(cmdServer.Arg(0))
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		runApiServer(ctx, conf)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information")
	}

}
