package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/models"
)

type serverGateway struct {
	client *RequestClient

	logger *logger.Logger
}

// NewServerGateway constructs the HTTP/REST implementation of
// [ServerGateway] on top of a [RequestClient]. The gateway owns paths,
// request shapes, and per-endpoint retry decisions; the client owns
// transport, auth injection, and error normalization.
func NewServerGateway(client *RequestClient, logger *logger.Logger) ServerGateway {
	return &serverGateway{client: client, logger: logger}
}

// Login implements [ServerGateway]. It POSTs the credentials to
// POST /api/auth/login without an Authorization header and decodes the token
// pair from the envelope data block. Returns [ErrAuth] (wrapped) with reason
// invalid-credentials when the server rejects the pair.
func (g *serverGateway) Login(ctx context.Context, req models.LoginRequest) (models.AuthPayload, error) {
	data, err := g.client.Execute(ctx, http.MethodPost, "/api/auth/login", req, RequestOptions{NoAuth: true})
	if err != nil {
		return models.AuthPayload{}, err
	}

	var payload models.AuthPayload
	if err = json.Unmarshal(data, &payload); err != nil {
		return models.AuthPayload{}, protocolError(http.StatusOK, "decode login response: "+err.Error())
	}

	return payload, nil
}

// Refresh implements [ServerGateway]. It POSTs the refresh token to
// POST /api/auth/refresh. The call is unauthenticated and never retried: a
// replayed refresh can invalidate the pair the first attempt already issued.
func (g *serverGateway) Refresh(ctx context.Context, refreshToken string) (models.AuthPayload, error) {
	req := models.RefreshRequest{RefreshToken: refreshToken}

	data, err := g.client.Execute(ctx, http.MethodPost, "/api/auth/refresh", req, RequestOptions{NoAuth: true, NoRetry: true})
	if err != nil {
		return models.AuthPayload{}, err
	}

	var payload models.AuthPayload
	if err = json.Unmarshal(data, &payload); err != nil {
		return models.AuthPayload{}, protocolError(http.StatusOK, "decode refresh response: "+err.Error())
	}

	return payload, nil
}

// Logout implements [ServerGateway]. It POSTs the device identifier to
// POST /api/auth/logout with the current bearer token. The session manager
// treats failures as best-effort; the gateway reports them verbatim.
func (g *serverGateway) Logout(ctx context.Context, deviceID string) error {
	req := models.LogoutRequest{DeviceID: deviceID}

	_, err := g.client.Execute(ctx, http.MethodPost, "/api/auth/logout", req, RequestOptions{})

	return err
}

// UploadChanges implements [ServerGateway]. It POSTs a journal batch to
// POST /api/sync/upload-changes with retries disabled: the sync engine owns
// the per-batch retry policy and must observe every failed attempt.
func (g *serverGateway) UploadChanges(ctx context.Context, req models.UploadChangesRequest) (models.UploadChangesResponse, error) {
	data, err := g.client.Execute(ctx, http.MethodPost, "/api/sync/upload-changes", req, RequestOptions{NoRetry: true})
	if err != nil {
		return models.UploadChangesResponse{}, err
	}

	var resp models.UploadChangesResponse
	if err = json.Unmarshal(data, &resp); err != nil {
		return models.UploadChangesResponse{}, protocolError(http.StatusOK, "decode upload response: "+err.Error())
	}

	return resp, nil
}

// GetChanges implements [ServerGateway]. It GETs one page of remote changes
// from GET /api/sync/get-changes. since, types and token map onto query
// parameters; empty values are omitted.
func (g *serverGateway) GetChanges(ctx context.Context, query models.GetChangesQuery) (models.GetChangesResponse, error) {
	values := url.Values{}
	if query.Since != "" {
		values.Set("since", query.Since)
	}
	if len(query.Types) > 0 {
		names := make([]string, 0, len(query.Types))
		for _, t := range query.Types {
			names = append(names, string(t))
		}
		values.Set("types", strings.Join(names, ","))
	}
	if query.Token != "" {
		values.Set("token", query.Token)
	}

	data, err := g.client.Execute(ctx, http.MethodGet, "/api/sync/get-changes", nil, RequestOptions{Query: values})
	if err != nil {
		return models.GetChangesResponse{}, err
	}

	var resp models.GetChangesResponse
	if err = json.Unmarshal(data, &resp); err != nil {
		return models.GetChangesResponse{}, protocolError(http.StatusOK, "decode get-changes response: "+err.Error())
	}

	return resp, nil
}
