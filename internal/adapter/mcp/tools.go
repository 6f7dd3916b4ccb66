package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/guillermoBallester/tabletalk/internal/core/service"
	"github.com/guillermoBallester/tabletalk/internal/core/tool"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "tabletalk"

const serverInstructions = "Operate an in-memory data table. Call describe_dataset first to learn the columns, " +
	"then sort, filter, select, group or analyze. " + domain.DisambiguationGuide

// Tool descriptions
const (
	descDescribeDataset = "Describe the loaded dataset: row count and, per column, its kind (numeric, text, identifier), " +
		"distinct count, cardinality class, null count, sample values and numeric range. " +
		"Use cardinality to choose group_rows fields; only numeric columns can be analyzed or ranked."

	descGetTableState = "Return the current table state: sorting, filters, selection, grouping, the visible page, " +
		"group summaries and the last analytics result."

	descResetTable = "Clear sorting, filters, selection and grouping."

	descAskTable = "Apply a natural-language request to the table (e.g. \"highlight the 5 most expensive sections\"). " +
		"The request is translated into table operations and executed."
)

// Deps are the services the tools run against. Chat is optional; without
// it ask_table is not registered.
type Deps struct {
	Tools   *tool.Set
	Table   *service.TableService
	Dataset *service.DatasetService
	Chat    *service.ChatService
}

// toolResponse is the JSON body of a table tool result.
type toolResponse struct {
	Tool         string                  `json:"tool"`
	Input        any                     `json:"input"`
	Confirmation string                  `json:"confirmation"`
	Message      string                  `json:"message"`
	Result       *domain.AnalyticsResult `json:"result,omitempty"`
	Filtered     int                     `json:"filtered_rows"`
	Selected     int                     `json:"selected_rows"`
}

func RegisterTools(s *server.MCPServer, deps Deps) {
	for _, spec := range deps.Tools.Specs() {
		schema, err := json.Marshal(spec.Parameters)
		if err != nil {
			// Schemas are built from literals; a failure here is a programming error.
			panic(fmt.Sprintf("tool %s: marshal schema: %v", spec.Name, err))
		}
		s.AddTool(
			mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema),
			tableToolHandler(spec.Name, deps.Tools, deps.Table),
		)
	}

	s.AddTool(
		mcp.NewTool("describe_dataset",
			mcp.WithDescription(descDescribeDataset),
		),
		describeDatasetHandler(deps.Dataset, deps.Table),
	)

	s.AddTool(
		mcp.NewTool("get_table_state",
			mcp.WithDescription(descGetTableState),
		),
		getTableStateHandler(deps.Table),
	)

	s.AddTool(
		mcp.NewTool("reset_table",
			mcp.WithDescription(descResetTable),
		),
		resetTableHandler(deps.Table),
	)

	if deps.Chat != nil {
		s.AddTool(
			mcp.NewTool("ask_table",
				mcp.WithDescription(descAskTable),
				mcp.WithString("utterance",
					mcp.Required(),
					mcp.Description("The user's request, verbatim"),
				),
			),
			askTableHandler(deps.Chat),
		)
	}
}

// tableToolHandler validates the call through the tool layer, then applies
// the resulting operations. Malformed arguments never reach the table.
func tableToolHandler(name string, tools *tool.Set, table *service.TableService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := tools.Run(port.ToolCall{Name: name, Arguments: request.GetArguments()})
		if err != nil {
			return mcp.NewToolResultError(domain.UserMessage(err)), nil
		}

		ctx = service.WithToolName(ctx, name)
		outcome, err := table.ExecuteOperations(ctx, out.Operations)
		if err != nil {
			return mcp.NewToolResultError(domain.UserMessage(err)), nil
		}

		view := table.Snapshot()
		resp := toolResponse{
			Tool:         name,
			Input:        out.Input,
			Confirmation: out.Message,
			Message:      outcome.Message,
			Result:       outcome.Result,
			Filtered:     view.FilteredRows,
			Selected:     view.SelectedRows,
		}
		if outcome.Result.Failed() {
			return jsonError(resp)
		}
		return jsonResult(resp)
	}
}

func describeDatasetHandler(datasets *service.DatasetService, table *service.TableService) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(datasets.Describe(table.Dataset()))
	}
}

func getTableStateHandler(table *service.TableService) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(table.Snapshot())
	}
}

func resetTableHandler(table *service.TableService) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table.Reset(ctx)
		return mcp.NewToolResultText("Table reset"), nil
	}
}

func askTableHandler(chat *service.ChatService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		utterance, ok := request.GetArguments()["utterance"].(string)
		if !ok || utterance == "" {
			return mcp.NewToolResultError("utterance is required"), nil
		}

		reply, err := chat.Submit(ctx, utterance)
		if err != nil {
			return mcp.NewToolResultError(domain.UserMessage(err)), nil
		}
		return jsonResult(reply)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonError(v any) (*mcp.CallToolResult, error) {
	res, err := jsonResult(v)
	if err == nil {
		res.IsError = true
	}
	return res, err
}
