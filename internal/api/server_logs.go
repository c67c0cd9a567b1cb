package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

func registerLogHandlers(api huma.API, svc Service) {
	type listLogsOutput struct {
		Body struct {
			Entries []activity.Event `json:"entries"`
			Count   int              `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-logs", Method: http.MethodGet, Path: "/api/v1/logs", Summary: "List activity log entries", Tags: []string{"Logs"}},
		func(ctx context.Context, input *struct {
			Symbol string `query:"symbol" doc:"Optional symbol filter (e.g. ASELS)"`
			Kind   string `query:"kind" doc:"Optional entry kind filter (e.g. drawing_created)"`
			Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"2000" doc:"Maximum entries to return, newest first"`
		}) (*listLogsOutput, error) {
			entries, err := svc.ListLogs(ctx, input.Symbol, input.Kind, input.Limit)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listLogsOutput{}
			out.Body.Entries = entries
			if out.Body.Entries == nil {
				out.Body.Entries = []activity.Event{}
			}
			out.Body.Count = len(entries)
			return out, nil
		})

	type clearLogsOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "clear-logs", Method: http.MethodDelete, Path: "/api/v1/logs", Summary: "Clear the activity log", Tags: []string{"Logs"}},
		func(ctx context.Context, input *struct{}) (*clearLogsOutput, error) {
			if err := svc.ClearLogs(ctx); err != nil {
				return nil, mapErr(err)
			}
			out := &clearLogsOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})
}
