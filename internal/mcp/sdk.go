package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterSDKTools advertises every registered tool on server and routes
// calls through the dispatcher and codec. The registry is sealed first.
func RegisterSDKTools(server *sdkmcp.Server, d *Dispatcher, codec *ResultCodec) ([]string, error) {
	if server == nil || d == nil || d.registry == nil {
		return nil, fmt.Errorf("server and dispatcher are required")
	}
	if codec == nil {
		codec = NewResultCodec(d.toolCtx.Logger)
	}
	d.registry.Seal()
	for _, info := range d.registry.Infos() {
		tool := &sdkmcp.Tool{
			Name:         info.Name,
			Description:  info.Description,
			InputSchema:  info.InputSchema,
			OutputSchema: info.OutputSchema,
		}
		server.AddTool(tool, toolHandler(info.Name, d, codec))
	}
	return d.registry.Names(), nil
}

func toolHandler(name string, d *Dispatcher, codec *ResultCodec) sdkmcp.ToolHandler {
	return func(callCtx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		args, err := decodeArguments(req)
		if err != nil {
			return buildCallToolResult(codec.Encode(Fail(Failure{Kind: KindInvalidInput, Message: err.Error()})), ToolMetadata{}), nil
		}
		profile, err := takeProfile(req, args)
		if err != nil {
			return buildCallToolResult(codec.Encode(Fail(Failure{Kind: KindInvalidInput, Message: err.Error()})), ToolMetadata{}), nil
		}
		result := d.Invoke(callCtx, Request{ToolName: name, Profile: profile, Arguments: args})
		return buildCallToolResult(codec.Encode(result), result.Metadata()), nil
	}
}

func decodeArguments(req *sdkmcp.CallToolRequest) (map[string]any, error) {
	args := map[string]any{}
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}
	raw := bytes.TrimSpace(req.Params.Arguments)
	if bytes.Equal(raw, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %v", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// takeProfile reads the call's profile from _meta.profile or the profile
// argument, removing the latter from args. The _meta value wins.
func takeProfile(req *sdkmcp.CallToolRequest, args map[string]any) (string, error) {
	profile := ""
	if value, ok := args[ProfileArgument]; ok {
		delete(args, ProfileArgument)
		str, isString := value.(string)
		if !isString && value != nil {
			return "", fmt.Errorf("invalid arguments: %s must be a string", ProfileArgument)
		}
		profile = str
	}
	if req != nil && req.Params != nil {
		if value, ok := req.Params.Meta[ProfileArgument].(string); ok && strings.TrimSpace(value) != "" {
			profile = value
		}
	}
	return strings.TrimSpace(profile), nil
}

func buildCallToolResult(resp Response, meta ToolMetadata) *sdkmcp.CallToolResult {
	res := &sdkmcp.CallToolResult{IsError: resp.IsError(), StructuredContent: resp}
	if len(meta.Resources) > 0 {
		res.Meta = sdkmcp.Meta{"resources": meta.Resources}
	}
	text, err := json.Marshal(resp)
	if err != nil {
		text = []byte(fmt.Sprintf(`{"status":%q,"errorKind":%q,"message":%q}`, statusError, KindInternal, unencodableMessage))
	}
	res.Content = []sdkmcp.Content{&sdkmcp.TextContent{Text: string(text)}}
	return res
}
