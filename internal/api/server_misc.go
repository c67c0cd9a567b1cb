package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_tracker/internal/hub"
	"github.com/dgnsrekt/tv_tracker/internal/storage"
)

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type stateOutput struct {
		Body hub.State
	}
	huma.Register(api, huma.Operation{OperationID: "get-state", Method: http.MethodGet, Path: "/api/v1/state", Summary: "Hub and watcher status", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			state, err := svc.GetState(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &stateOutput{}
			out.Body = state
			return out, nil
		})

	type listShotsOutput struct {
		Body struct {
			Screenshots []storage.ShotMeta `json:"screenshots"`
			Count       int                `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-screenshots", Method: http.MethodGet, Path: "/api/v1/screenshots", Summary: "List drawing screenshots", Tags: []string{"Screenshots"}},
		func(ctx context.Context, input *struct {
			Symbol string `query:"symbol" doc:"Optional symbol filter"`
		}) (*listShotsOutput, error) {
			metas, err := svc.ListScreenshots(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listShotsOutput{}
			out.Body.Screenshots = metas
			if out.Body.Screenshots == nil {
				out.Body.Screenshots = []storage.ShotMeta{}
			}
			out.Body.Count = len(metas)
			return out, nil
		})

	type shotIDInput struct {
		ShotID string `path:"shot_id"`
	}
	type shotMetaOutput struct {
		Body storage.ShotMeta
	}
	huma.Register(api, huma.Operation{OperationID: "get-screenshot-metadata", Method: http.MethodGet, Path: "/api/v1/screenshots/{shot_id}/metadata", Summary: "Get screenshot metadata", Tags: []string{"Screenshots"}},
		func(ctx context.Context, input *shotIDInput) (*shotMetaOutput, error) {
			metas, err := svc.ListScreenshots(ctx, "")
			if err != nil {
				return nil, mapErr(err)
			}
			for _, m := range metas {
				if m.ID == input.ShotID {
					out := &shotMetaOutput{}
					out.Body = m
					return out, nil
				}
			}
			return nil, huma.Error404NotFound("screenshot not found: " + input.ShotID)
		})
}
