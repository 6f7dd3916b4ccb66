package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/guillermoBallester/tabletalk/internal/core/tool"
	"github.com/spf13/cobra"
)

var errNoLanguageModel = errors.New("ask needs a language model: set LLM_PROVIDER and LLM_API_KEY")

func newAskCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Apply one natural-language request to the dataset and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.chat == nil {
					return errNoLanguageModel
				}
				reply, err := a.chat.Submit(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), reply)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full reply as JSON")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		in     domain.AnalyticsOperation
		value  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analytics operation without a language model",
		Example: "  tabletalk analyze --operation topN --field averagePricePerM2 --count 5\n" +
			"  tabletalk analyze --operation sumWhere --field transactionCount --secondary-field arrondissement --operator eq --value 11",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := analyze(ctx, a, analyzeArgs(in, value, cmd.Flags().Changed("value")))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), res.Message); err != nil {
					return err
				}
				if res.Failed() {
					return errors.New(res.Error)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar((*string)(&in.Operation), "operation", "", "analytics operation (sum, average, count, min, max, topN, bottomN, percentile, ...)")
	f.StringVar(&in.Field, "field", "", "field to compute on")
	f.StringVar(&in.SecondaryField, "secondary-field", "", "condition or group field")
	f.StringVar((*string)(&in.Operator), "operator", "", "condition operator: gt, lt, eq, gte or lte")
	f.StringVar(&value, "value", "", "condition value, percentile or compared group value")
	f.IntVar(&in.Count, "count", 0, "rows for topN/bottomN")
	f.StringVar((*string)(&in.Aggregation), "aggregation", "", "aggregation used by compare")
	f.BoolVar(&in.Ascending, "ascending", false, "rank lowest values first")
	f.StringVar((*string)(&in.Scope), "scope", "", "all, filtered, selected, visible or grouped")
	f.BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("operation")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

// analyzeArgs renders the flags as analyze_data arguments so the CLI goes
// through the same validation as a model's tool call.
func analyzeArgs(in domain.AnalyticsOperation, value string, hasValue bool) map[string]any {
	args := map[string]any{
		"operation": string(in.Operation),
		"field":     in.Field,
	}
	if in.SecondaryField != "" {
		args["secondaryField"] = in.SecondaryField
	}
	if in.Operator != "" {
		args["operator"] = string(in.Operator)
	}
	if hasValue {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			args["value"] = f
		} else {
			args["value"] = value
		}
	}
	if in.Count > 0 {
		args["count"] = in.Count
	}
	if in.Aggregation != "" {
		args["aggregation"] = string(in.Aggregation)
	}
	if in.Ascending {
		args["ascending"] = true
	}
	if in.Scope != "" {
		args["scope"] = string(in.Scope)
	}
	return args
}

func analyze(ctx context.Context, a *app, args map[string]any) (*domain.AnalyticsResult, error) {
	out, err := a.tools.Run(port.ToolCall{Name: tool.AnalyzeData, Arguments: args})
	if err != nil {
		return nil, err
	}
	req, ok := out.Operations[0].(domain.AnalyticsOperation)
	if !ok {
		return nil, fmt.Errorf("%w: analyze_data produced %s", domain.ErrInvalidOperation, out.Operations[0].Kind())
	}
	return a.table.ExecuteAnalysis(ctx, req), nil
}

// withApp loads config, wires the app, runs fn, and releases the app.
func withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
