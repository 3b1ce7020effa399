// Package tool implements the operator tools exposed over MCP.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	SyncAccountTool = "sync_account"
	GetAccountTool  = "get_account"
)

// Handler runs bridge operations on behalf of an operator.
type Handler struct {
	bridge *bridge.Service
}

// NewHandler creates a new tool handler.
func NewHandler(svc *bridge.Service) *Handler {
	return &Handler{bridge: svc}
}

// Tools returns the tool definitions served by Handler.
func (h *Handler) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(SyncAccountTool,
			mcp.WithDescription("Create the downstream account for an identity-provider user. Use it to replay a registration whose sync failed."),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Identity provider user id, e.g. auth0|123")),
			mcp.WithString("email", mcp.Description("User email address")),
		),
		mcp.NewTool(GetAccountTool,
			mcp.WithDescription("Look up the downstream account linked to an identity-provider user and show the claims a login would receive."),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Identity provider user id, e.g. auth0|123")),
		),
	}
}

// CreateHandler returns the handler function for the named tool.
func (h *Handler) CreateHandler(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch name {
	case SyncAccountTool:
		return h.syncAccount
	case GetAccountTool:
		return h.getAccount
	default:
		return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool %q", name)), nil
		}
	}
}

func (h *Handler) syncAccount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	userID, _ := args["user_id"].(string)
	email, _ := args["email"].(string)

	acct, err := h.bridge.Register(ctx, bridge.RegistrationEvent{
		User: bridge.User{UserID: bridge.ExternalID(userID), Email: email},
	})
	if err != nil {
		logger.Warn("sync_account failed", zap.String("user_id", userID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", bridge.Code(err), err)), nil
	}
	return textResult(map[string]string{"account_id": acct.ID})
}

func (h *Handler) getAccount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	userID, _ := args["user_id"].(string)

	claims := bridge.NewClaimSet()
	acct, err := h.bridge.Login(ctx, bridge.LoginEvent{User: bridge.User{UserID: bridge.ExternalID(userID)}}, claims)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", bridge.Code(err), err)), nil
	}
	return textResult(map[string]any{
		"account_id": acct.ID,
		"claims": map[bridge.TokenTarget]map[string]any{
			bridge.AccessToken: claims.Claims(bridge.AccessToken),
			bridge.IDToken:     claims.Claims(bridge.IDToken),
		},
	})
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
