package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/model"
)

const maxRequestBytes = 1 << 20

var validate = validator.New()

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the contractor bids in a JSON request",
	Long: "Reads an evaluation request (project_details plus contractor_bids) from --file, " +
		"or stdin when the file is -, and prints the ranked result as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		in, err := openInput(path)
		if err != nil {
			return err
		}
		defer in.Close() //nolint:errcheck

		req, err := decodeRequest(in)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := buildEnv(ctx, cfg, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer env.Close()

		result := env.Pipeline.Run(ctx, req)
		zap.L().Info("evaluation complete",
			zap.String("request_id", result.Metadata.RequestID),
			zap.Int("contractors", len(result.Contractors)),
			zap.Bool("degraded", result.Metadata.Degraded),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	evaluateCmd.Flags().StringP("file", "f", "", "path to the request JSON, or - for stdin")
	_ = evaluateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(evaluateCmd)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, eris.Wrapf(err, "open request %s", path)
	}
	return f, nil
}

// decodeRequest parses and validates an evaluation request. An empty bid
// list is valid.
func decodeRequest(r io.Reader) (model.EvaluationRequest, error) {
	var req model.EvaluationRequest
	dec := json.NewDecoder(io.LimitReader(r, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		return req, eris.Wrap(err, "decode request")
	}
	if err := validate.Struct(req); err != nil {
		return req, eris.Wrap(err, "invalid request")
	}
	return req, nil
}
