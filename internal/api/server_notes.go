package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

func registerNoteHandlers(api huma.API, svc Service) {
	type symbolInput struct {
		Symbol string `path:"symbol"`
	}

	type noteOutput struct {
		Body struct {
			Symbol string `json:"symbol"`
			Note   string `json:"note"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-note", Method: http.MethodGet, Path: "/api/v1/notes/{symbol}", Summary: "Get the note attached to a symbol", Tags: []string{"Notes"}},
		func(ctx context.Context, input *symbolInput) (*noteOutput, error) {
			note, err := svc.GetNote(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &noteOutput{}
			out.Body.Symbol = input.Symbol
			out.Body.Note = note
			return out, nil
		})

	type putNoteInput struct {
		Symbol string `path:"symbol"`
		Body   struct {
			Note string `json:"note" required:"true" doc:"Shown the next time the symbol is opened on the chart"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "put-note", Method: http.MethodPut, Path: "/api/v1/notes/{symbol}", Summary: "Attach a note to a symbol", Tags: []string{"Notes"}},
		func(ctx context.Context, input *putNoteInput) (*noteOutput, error) {
			if err := svc.SetNote(ctx, input.Symbol, input.Body.Note); err != nil {
				return nil, mapErr(err)
			}
			out := &noteOutput{}
			out.Body.Symbol = input.Symbol
			out.Body.Note = input.Body.Note
			return out, nil
		})

	type deleteNoteOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-note", Method: http.MethodDelete, Path: "/api/v1/notes/{symbol}", Summary: "Remove a symbol's note", Tags: []string{"Notes"}},
		func(ctx context.Context, input *symbolInput) (*deleteNoteOutput, error) {
			if err := svc.DeleteNote(ctx, input.Symbol); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteNoteOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})

	type memoryOutput struct {
		Body struct {
			Symbol string                `json:"symbol"`
			Memory activity.SymbolMemory `json:"memory"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-memory", Method: http.MethodGet, Path: "/api/v1/memory/{symbol}", Summary: "Get the remembered last view of a symbol", Tags: []string{"Notes"}},
		func(ctx context.Context, input *symbolInput) (*memoryOutput, error) {
			mem, err := svc.GetMemory(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &memoryOutput{}
			out.Body.Symbol = input.Symbol
			out.Body.Memory = mem
			return out, nil
		})
}
