package mcp

import (
	"context"
	"errors"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/models"
)

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List logged workouts, oldest first. Each workout has id, date, coords [lat, lng], distance (km), duration (min), description, and either cadence/pace (running) or elevation/speed (cycling)."),
	mcp.WithString("type", mcp.Description("Only return workouts of this type."), mcp.Enum("running", "cycling")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get a single workout by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Log a workout at a map location, exactly as if the map had been clicked there and the form submitted. Distance, duration and (running) cadence must be positive; cycling elevation may be zero or negative."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Workout type"), mcp.Enum("running", "cycling")),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the workout location")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the workout location")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in km")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	mcp.WithNumber("cadence", mcp.Description("Steps per minute. Required for running.")),
	mcp.WithNumber("elevation", mcp.Description("Elevation gain in meters. Used for cycling.")),
)

var toolResetWorkouts = mcp.NewTool("reset_workouts",
	mcp.WithDescription("Delete every logged workout. Irreversible; nothing happens unless confirm is true."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to delete")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if t := models.Type(req.GetString("type", "")); t != "" {
		filtered := make([]models.Record, 0, len(records))
		for _, r := range records {
			if r.Type == t {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	return jsonResult(records)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return mcp.NewToolResultError("no workout with id " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "id", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(record)
}

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	distance, err := req.RequireFloat("distance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	duration, err := req.RequireFloat("duration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := coordinator.FormInput{
		Type:      t,
		Distance:  formatNumber(distance),
		Duration:  formatNumber(duration),
		Cadence:   optionalNumber(req, "cadence"),
		Elevation: optionalNumber(req, "elevation"),
	}

	record, err := h.ds.LogWorkout(ctx, models.Coordinates{Lat: lat, Lng: lng}, in)
	var verr *coordinator.ValidationError
	if errors.As(err, &verr) {
		return mcp.NewToolResultError(verr.Message), nil
	}
	if err != nil {
		h.log.Error("mcp log_workout", "error", err)
		return mcp.NewToolResultError("logging failed: " + err.Error()), nil
	}
	return jsonResult(record)
}

func (h *handlers) resetWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, err := req.RequireBool("confirm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	done, err := h.ds.ResetWorkouts(ctx, confirm)
	if err != nil {
		h.log.Error("mcp reset_workouts", "error", err)
		return mcp.NewToolResultError("reset failed: " + err.Error()), nil
	}
	return jsonResult(map[string]bool{"reset": done})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func formatNumber(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// optionalNumber returns the argument as form text, or "" when absent.
func optionalNumber(req mcp.CallToolRequest, key string) string {
	if _, ok := req.GetArguments()[key]; !ok {
		return ""
	}
	return formatNumber(req.GetFloat(key, 0))
}
