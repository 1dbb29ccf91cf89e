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
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/cnf"
	"github.com/timodonnell/mhcpred/dataimport"
	"github.com/timodonnell/mhcpred/eval"
	"github.com/timodonnell/mhcpred/feats"
	"github.com/timodonnell/mhcpred/stats"
)

type service interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// ----------------------

func getRequestOrigin(ctx *gin.Context) string {
	currOrigin, ok := ctx.Request.Header["Origin"]
	if ok {
		return currOrigin[0]
	}
	return ""
}

func CORSMiddleware(conf *cnf.Conf) gin.HandlerFunc {
	return func(ctx *gin.Context) {

		var allowedOrigin string
		currOrigin := getRequestOrigin(ctx)
		for _, origin := range conf.CorsAllowedOrigins {
			if currOrigin == origin {
				allowedOrigin = origin
				break
			}
		}
		if allowedOrigin != "" {
			ctx.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			ctx.Writer.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With",
			)
			ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		}

		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(204)
			return
		}
		ctx.Next()
	}
}

// ------

type prediction struct {
	Allele   string    `json:"allele"`
	Peptide  string    `json:"peptide"`
	Windows  []float64 `json:"windows"`
	IC50     float64   `json:"ic50"`
	IsBinder bool      `json:"isBinder"`
}

// -----

type apiServer struct {
	conf    *cnf.Conf
	server  *http.Server
	model   *eval.RefinedModel
	seqs    *dataimport.PseudoSequences
	encoder *feats.Encoder
	statsDB *stats.Database
}

func (api *apiServer) handlePredict(ctx *gin.Context) {
	peptide := strings.ToUpper(strings.TrimSpace(ctx.Query("peptide")))
	allele := ctx.Query("allele")
	if peptide == "" || allele == "" {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("both peptide and allele arguments are required"),
			http.StatusBadRequest,
		)
		return
	}
	windows, ic50, err := predictPeptide(api.model, api.encoder, api.seqs, allele, peptide)
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	resp := prediction{
		Allele:   dataimport.NormalizeAllele(allele),
		Peptide:  peptide,
		Windows:  windows,
		IC50:     ic50,
		IsBinder: ic50 <= api.conf.BinderThreshold,
	}
	uniresp.WriteJSONResponse(ctx.Writer, resp)
}

func (api *apiServer) handleEvalRuns(ctx *gin.Context) {
	if api.statsDB == nil {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("stats database not configured"), http.StatusNotFound,
		)
		return
	}
	runs, err := api.statsDB.GetEvalRuns()
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, runs)
}

func (api *apiServer) Start(ctx context.Context) {
	if !api.conf.Logging.Level.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinMiddleware())
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.Use(CORSMiddleware(api.conf))
	engine.NoMethod(uniresp.NoMethodHandler)
	engine.NoRoute(uniresp.NotFoundHandler)

	engine.GET("/predict", api.handlePredict)
	engine.GET("/eval-runs", api.handleEvalRuns)

	log.Info().Msgf("starting to listen at %s:%d", api.conf.ListenAddress, api.conf.ListenPort)
	api.server = &http.Server{
		Handler:      engine,
		Addr:         fmt.Sprintf("%s:%d", api.conf.ListenAddress, api.conf.ListenPort),
		WriteTimeout: time.Duration(api.conf.ServerWriteTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(api.conf.ServerReadTimeoutSecs) * time.Second,
	}
	go func() {
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
}

func (api *apiServer) Stop(ctx context.Context) error {
	log.Warn().Msg("shutting down mhcpred HTTP API server")
	return api.server.Shutdown(ctx)
}

// -------------------------

func runApiServer(
	ctx context.Context,
	conf *cnf.Conf,
) {
	model, err := eval.LoadRefinedModelFromFile(conf.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading refined model")
		return
	}
	seqs, err := dataimport.ReadPseudoSequences(conf.MHCSeqsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading MHC pseudosequences")
		return
	}
	encoder, err := feats.NewEncoder(feats.NewAlphabet(), seqs.Length())
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating encoder")
		return
	}
	var statsDB *stats.Database
	if conf.StatsDBPath != "" {
		statsDB, err = stats.NewDatabase(conf.StatsDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening stats database")
			return
		}
		if err := statsDB.Init(); err != nil {
			log.Fatal().Err(err).Msg("Error initializing stats database")
			return
		}
	}

	server := &apiServer{
		conf:    conf,
		model:   model,
		seqs:    seqs,
		encoder: encoder,
		statsDB: statsDB,
	}

	services := []service{server}
	for _, m := range services {
		m.Start(ctx)
	}
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range services {
		wg.Add(1)
		go func(srv service) {
			defer wg.Done()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Type("service", srv).Msg("Error shutting down service")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timed out")
	}
}
