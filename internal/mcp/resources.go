package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/mapty/internal/models"
)

type typeTotals struct {
	Count    int     `json:"count"`
	Distance float64 `json:"distance_km"`
	Duration float64 `json:"duration_min"`
}

func (h *handlers) workouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.Record{}
	}
	return jsonContents(req.Params.URI, records)
}

func (h *handlers) summary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[models.Type]*typeTotals, len(models.Types))
	for _, t := range models.Types {
		totals[t] = &typeTotals{}
	}
	for _, r := range records {
		tt, ok := totals[r.Type]
		if !ok {
			h.log.Warn("summary: skipping workout of unknown type", "id", r.ID, "type", r.Type)
			continue
		}
		tt.Count++
		tt.Distance += r.Distance
		tt.Duration += r.Duration
	}

	return jsonContents(req.Params.URI, map[string]any{
		"workouts": len(records),
		"by_type":  totals,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
