package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"clausewise-backend/bootstrap"
	"clausewise-backend/models"
	"clausewise-backend/service"

	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Print the sample contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), models.SampleContract())
		},
	}
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Categorize clause risk, score safety and list precautions for a PDF, image or DOCX",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := app.Contracts.AnalyzeDocument(ctx, service.AnalyzeDocumentRequest{
				SessionID: opts.session,
				Document:  service.DocumentSource{Filename: filepath.Base(args[0]), Data: data},
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res.Analysis)
		}),
	}
}

func newScoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "score [contract.json]",
		Short: "Score each clause of a JSON contract (the sample contract when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			contract := models.SampleContract()
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				contract = models.Contract{}
				if err := json.Unmarshal(data, &contract); err != nil {
					return fmt.Errorf("parse %s: %w", args[0], err)
				}
			}
			res, err := app.Contracts.AnalyzeClauseRisk(ctx, service.AnalyzeClauseRiskRequest{Clauses: contract.Clauses})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res.Results)
		}),
	}
}

func newAskCmd(opts *options) *cobra.Command {
	var (
		file    string
		clauses []string
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question about a contract file, given clauses or the session's last analysis",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			req := service.AnswerQuestionRequest{
				SessionID:       opts.session,
				Question:        args[0],
				RelevantClauses: clauses,
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				req.Document = service.DocumentSource{Filename: filepath.Base(file), Data: data}
			}
			ans, err := app.Contracts.AnswerQuestion(ctx, req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ans.Answer)
			return err
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "contract file to ask about")
	cmd.Flags().StringArrayVarP(&clauses, "clause", "c", nil, "clause text to ask about (repeatable)")
	return cmd
}

func newLawyersCmd(opts *options) *cobra.Command {
	var (
		city     string
		lat, lng float64
	)
	cmd := &cobra.Command{
		Use:   "lawyers",
		Short: "Find top-rated lawyers near a coordinate, in a city, or near this machine",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return errors.New("--lat and --lng must be given together")
			}

			req := service.LawyerSearchRequest{CityName: city, FailureReason: service.ReasonUnsupported}
			if latSet {
				req = service.LawyerSearchRequest{
					CityName: city,
					Precise:  &service.Position{Coordinates: models.Coordinates{Lat: lat, Lng: lng}},
				}
			}
			res, err := app.Lawyers.Search(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().StringVar(&city, "city", "", "city to search in")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	return cmd
}
