package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ml-pipeline-nodes/internal/adapters/primary/http/dto"
	"ml-pipeline-nodes/internal/adapters/secondary/postgres"
	"ml-pipeline-nodes/internal/app"
	"ml-pipeline-nodes/internal/config"
)

type options struct {
	requestFile string
	output      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "nodectl",
		Short:         "Run a pipeline node once against the platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.requestFile, "file", "f", "-", "request file (YAML or JSON), - for stdin")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")

	root.AddCommand(
		nodeCmd("create-model", "Clone a base model into a new model", opts, runCreateModel),
		nodeCmd("data-split", "Assign an item to a split group", opts, runDataSplit),
		nodeCmd("compare-models", "Compare a new model with the previous one", opts, runCompareModels),
		nodeCmd("predict-items", "Predict items with a model", opts, runPredictItems),
		migrateCmd(),
	)
	return root
}

type nodeRunner func(ctx context.Context, svcs *app.Services, raw []byte) (interface{}, error)

func nodeCmd(use, short string, opts *options, run nodeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readRequest(cmd.InOrStdin(), opts.requestFile)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.InitLogger(cfg)
			log.SetOutput(cmd.ErrOrStderr())

			svcs, err := app.Wire(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("wire services: %w", err)
			}
			defer svcs.Close()

			resp, err := run(cmd.Context(), svcs, raw)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, resp)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the node run journal schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.InitLogger(cfg)
			return postgres.Migrate(cfg.Database.DSN())
		},
	}
}

// ============================================================================
// Node runners
// ============================================================================

func runCreateModel(ctx context.Context, svcs *app.Services, raw []byte) (interface{}, error) {
	var req dto.CreateModelRequest
	if err := decodeRequest(raw, &req); err != nil {
		return nil, err
	}
	res, err := svcs.CreateModel.CreateModel(ctx, req.ToService())
	if err != nil {
		return nil, err
	}
	return dto.ToCreateModelResponse(res), nil
}

func runDataSplit(ctx context.Context, svcs *app.Services, raw []byte) (interface{}, error) {
	var req dto.DataSplitRequest
	if err := decodeRequest(raw, &req); err != nil {
		return nil, err
	}
	res, err := svcs.DataSplit.Split(ctx, req.ItemID, req.Context.ToDomain())
	if err != nil {
		return nil, err
	}
	return dto.DataSplitResponse{Item: res.Item, Action: res.Action}, nil
}

func runCompareModels(ctx context.Context, svcs *app.Services, raw []byte) (interface{}, error) {
	var req dto.CompareModelsRequest
	if err := decodeRequest(raw, &req); err != nil {
		return nil, err
	}
	out, err := svcs.Compare.Compare(ctx, req.ToService())
	if err != nil {
		return nil, err
	}
	return dto.ToCompareModelsResponse(out), nil
}

func runPredictItems(ctx context.Context, svcs *app.Services, raw []byte) (interface{}, error) {
	var req dto.PredictItemsRequest
	if err := decodeRequest(raw, &req); err != nil {
		return nil, err
	}
	res, err := svcs.Prediction.PredictItems(ctx, req.ToService())
	if err != nil {
		return nil, err
	}
	return dto.ToPredictItemsResponse(res), nil
}

// ============================================================================
// I/O
// ============================================================================

func readRequest(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	return raw, nil
}

// decodeRequest accepts YAML or JSON, JSON being a subset of YAML.
func decodeRequest(raw []byte, out interface{}) error {
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		// round-trip through JSON so the response json tags name the keys
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
