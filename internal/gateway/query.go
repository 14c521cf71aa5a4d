package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/user/querydesk/internal/types"
)

// resultDataPayload is the nested result carrier of the /query-lg shape.
// Which of the three fields is populated depends on what the backend's
// executor produced; first match wins in the order below.
type resultDataPayload struct {
	PandasDF     string          `json:"pandas_df"`
	ResultStr    string          `json:"result_str"`
	PandasDFJSON json.RawMessage `json:"pandas_df_json"`
}

// executionPayload covers both endpoints' execution sub-objects. The legacy
// shape carries flat output/results fields; the alternate shape nests
// result_data instead.
type executionPayload struct {
	Output     string             `json:"output"`
	SQL        string             `json:"sql"`
	Results    json.RawMessage    `json:"results"`
	Success    *bool              `json:"success"`
	Error      string             `json:"error"`
	ResultData *resultDataPayload `json:"result_data"`
}

// queryResponse is the union of both query endpoints' top-level fields.
type queryResponse struct {
	Success          bool              `json:"success"`
	PydoughCode      string            `json:"pydoughCode"`
	PydoughCodeSnake string            `json:"pydough_code"`
	Execution        *executionPayload `json:"execution"`
	Explanation      string            `json:"explanation"`
	Domain           string            `json:"domain"`
	Messages         []types.Turn      `json:"messages"`
	Error            string            `json:"error"`
}

// Query submits one conversational turn plus the transcript so far. Failures
// of every kind are folded into the outcome; this never returns an error
// value, matching the single-envelope contract.
func (c *Client) Query(ctx context.Context, req *types.QueryRequest) *types.QueryOutcome {
	history := req.History
	if history == nil {
		history = []types.Turn{}
	}

	var (
		path string
		body any
	)
	if req.LangGraph {
		path = "/query-lg"
		body = map[string]any{
			"query":   req.Query,
			"execute": req.Execute,
			"domain":  req.Source,
			"history": history,
		}
	} else {
		path = "/query"
		body = map[string]any{
			"query_text": req.Query,
			"domain":     req.Source,
			"history":    history,
			"execute":    req.Execute,
		}
	}

	var resp queryResponse
	if err := c.postJSON(ctx, path, body, &resp); err != nil {
		return &types.QueryOutcome{
			Kind: types.OutcomeTransportFailure,
			Err:  err.Error(),
		}
	}
	return normalizeQuery(&resp)
}

// normalizeQuery maps either response shape onto the one internal envelope.
// Execution failures outrank the generic error field.
func normalizeQuery(resp *queryResponse) *types.QueryOutcome {
	out := &types.QueryOutcome{
		Code:        firstNonEmpty(resp.PydoughCode, resp.PydoughCodeSnake),
		Explanation: resp.Explanation,
		Source:      resp.Domain,
	}
	if out.Explanation == "" {
		out.Explanation = lastAssistantContent(resp.Messages)
	}

	if exec := resp.Execution; exec != nil {
		out.SQL = exec.SQL
		out.RawResult = executionResult(exec)
		if exec.Success != nil && !*exec.Success {
			out.Kind = types.OutcomeExecutionFailure
			out.Err = firstNonEmpty(exec.Error, resp.Error, "execution failed")
			return out
		}
	}

	if !resp.Success {
		out.Kind = types.OutcomeApplicationFailure
		out.Err = firstNonEmpty(resp.Error, "backend reported failure")
		return out
	}

	out.Kind = types.OutcomeSuccess
	return out
}

// executionResult picks the raw result text out of whichever field the
// backend populated. A pandas_df_json document is re-wrapped behind the
// tabular sentinel so the interpreter treats it like any other marked block.
func executionResult(exec *executionPayload) string {
	if rd := exec.ResultData; rd != nil {
		if rd.PandasDF != "" {
			return rd.PandasDF
		}
		if rd.ResultStr != "" {
			return rd.ResultStr
		}
		if len(rd.PandasDFJSON) > 0 {
			return "PD_JSON::" + string(rd.PandasDFJSON)
		}
	}
	if exec.Output != "" {
		return exec.Output
	}
	return rawToString(exec.Results)
}

// rawToString renders a JSON value of unknown type as display text:
// strings unquoted, anything else as its JSON encoding.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func lastAssistantContent(turns []types.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == types.RoleAssistant {
			return turns[i].Content
		}
	}
	return ""
}
