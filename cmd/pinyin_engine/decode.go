package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/internal/engine"
	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

var (
	dictionaryName string
	beamWidth      int
	bigramLambda   float64
	jsonOutput     bool
)

// decodeCmd converts one input offline, without starting the server
var decodeCmd = &cobra.Command{
	Use:   "decode [pinyin...]",
	Short: "Convert separated pinyin into phrases",
	Long: `Converts explicitly separated pinyin into the most likely phrase sequence
using a dictionary from the data directory.

Example:
  pinyin-engine decode --dict default ni hao`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

// trainCmd decodes an input and commits the result as if a user had chosen it
var trainCmd = &cobra.Command{
	Use:   "train [pinyin...]",
	Short: "Decode pinyin and learn from the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrain,
}

func init() {
	for _, cmd := range []*cobra.Command{decodeCmd, trainCmd} {
		addDecodeFlags(cmd)
	}
}

func addDecodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&dictionaryName, "dict", "d", "default", "Dictionary to use")
	cmd.Flags().IntVar(&beamWidth, "beam", 0, "Beam width (0 uses the dictionary setting)")
	cmd.Flags().Float64Var(&bigramLambda, "lambda", config.DefaultBigramLambda, "Bigram weight in [0,1] (unset uses the dictionary setting)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
}

func openEngine() *engine.Engine {
	return engine.NewEngine(engine.Options{
		DataDir:          cfg.DataDir,
		Defaults:         cfg.Defaults,
		BatchConcurrency: 1,
		MaxWorkers:       1,
		Logger:           logger.Named("engine"),
	})
}

// decodeRequest builds the request for args from the command's flags.
// An explicit --lambda is checked here, before any dictionary is loaded.
func decodeRequest(cmd *cobra.Command, args []string) (services.DecodeRequest, error) {
	req := services.DecodeRequest{BeamWidth: beamWidth}
	if cmd.Flags().Changed("lambda") {
		if msg := config.ValidateLambda(bigramLambda); msg != "" {
			return services.DecodeRequest{}, internalErrors.NewValidationError("lambda", msg)
		}
		lambda := bigramLambda
		req.BigramLambda = &lambda
	}
	if beamWidth < 0 {
		return services.DecodeRequest{}, internalErrors.NewValidationError("beam", fmt.Sprintf("must not be negative, got %d", beamWidth))
	}

	m, err := matrix.Parse(strings.Join(args, " "))
	if err != nil {
		return services.DecodeRequest{}, internalErrors.NewValidationError("input", err.Error())
	}
	req.Matrix = m
	return req, nil
}

func printResult(cmd *cobra.Command, result services.DecodeResult) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return err
}

func runDecode(cmd *cobra.Command, args []string) error {
	req, err := decodeRequest(cmd, args)
	if err != nil {
		return err
	}
	eng := openEngine()
	defer func() { _ = eng.Close() }()

	dict, err := eng.GetDictionary(dictionaryName)
	if err != nil {
		return err
	}
	result, err := dict.Decode(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printResult(cmd, result)
}

func runTrain(cmd *cobra.Command, args []string) error {
	req, err := decodeRequest(cmd, args)
	if err != nil {
		return err
	}
	eng := openEngine()
	defer func() { _ = eng.Close() }()

	dict, err := eng.GetDictionary(dictionaryName)
	if err != nil {
		return err
	}
	result, err := dict.Decode(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := dict.Train(cmd.Context(), result.Result); err != nil {
		return fmt.Errorf("failed to train %q: %w", result.Text, err)
	}
	logger.Info("Result committed",
		zap.String("dictionary", dictionaryName),
		zap.String("text", result.Text),
		zap.Int("phrases", len(result.Result.Matches)))
	return printResult(cmd, result)
}
