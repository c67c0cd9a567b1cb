package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

func registerReportHandlers(api huma.API, svc Service) {
	type listReportsOutput struct {
		Body struct {
			Reports []activity.SessionReport `json:"reports"`
			Count   int                      `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-reports", Method: http.MethodGet, Path: "/api/v1/reports", Summary: "List session reports", Tags: []string{"Reports"}},
		func(ctx context.Context, input *struct {
			Symbol string `query:"symbol" doc:"Optional symbol filter"`
		}) (*listReportsOutput, error) {
			reports, err := svc.ListReports(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listReportsOutput{}
			out.Body.Reports = reports
			if out.Body.Reports == nil {
				out.Body.Reports = []activity.SessionReport{}
			}
			out.Body.Count = len(reports)
			return out, nil
		})

	type reportIDInput struct {
		ReportID string `path:"report_id"`
	}
	type getReportOutput struct {
		Body activity.SessionReport
	}
	huma.Register(api, huma.Operation{OperationID: "get-report", Method: http.MethodGet, Path: "/api/v1/reports/{report_id}", Summary: "Get a session report by ID", Tags: []string{"Reports"}},
		func(ctx context.Context, input *reportIDInput) (*getReportOutput, error) {
			r, err := svc.GetReport(ctx, input.ReportID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &getReportOutput{}
			out.Body = r
			return out, nil
		})

	type forceReportOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "force-report", Method: http.MethodPost, Path: "/api/v1/reports/force", Summary: "Ask the watcher to close and report its active session", Tags: []string{"Reports"}},
		func(ctx context.Context, input *struct{}) (*forceReportOutput, error) {
			if err := svc.ForceReport(ctx); err != nil {
				return nil, mapErr(err)
			}
			out := &forceReportOutput{}
			out.Body.Status = "requested"
			return out, nil
		})
}
