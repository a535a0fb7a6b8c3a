/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grouptrip/internal/itinerary"
	"github.com/friendsincode/grouptrip/internal/resultapi"
)

var (
	planStart int
	planEnd   int
	planDate  string
	planMove  string
	planJSON  bool
)

var planCmd = &cobra.Command{
	Use:   "plan <activities.json>",
	Short: "Schedule an activity file offline",
	Long: `Schedule a results-backend activity file for a window without a server.

The file is either a bare array of activities or a full itinerary response
({"data":{"activities":[...]}}).

Examples:
  # Schedule between 9 AM and 5 PM
  grouptrip plan activities.json --start 9 --end 17

  # Move the third activity to the front and show any warnings
  grouptrip plan activities.json --date 3/15/2024 --move 2:0
`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().IntVar(&planStart, "start", itinerary.DefaultStartHour, "Window start hour (0-23)")
	planCmd.Flags().IntVar(&planEnd, "end", itinerary.DefaultEndHour, "Window end hour (0-23)")
	planCmd.Flags().StringVar(&planDate, "date", itinerary.DefaultDate, "Trip date as M/D/YYYY, used for opening days")
	planCmd.Flags().StringVar(&planMove, "move", "", "Reorder as from:to (zero-based) before printing")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read activities: %w", err)
	}
	activities, err := decodeActivities(data)
	if err != nil {
		return err
	}

	w := itinerary.Window{StartHour: planStart, EndHour: planEnd, Date: planDate}
	schedule := itinerary.CalculateTimes(activities, w)

	var warnings []itinerary.Warning
	if planMove != "" {
		from, to, err := parseMove(planMove)
		if err != nil {
			return err
		}
		result, err := itinerary.MoveActivity(schedule, from, to, true, w)
		if err != nil {
			return fmt.Errorf("move %s: %w", planMove, err)
		}
		schedule = result.Schedule
		warnings = result.Warnings
	}

	out := cmd.OutOrStdout()
	if planJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"window":   w,
			"summary":  itinerary.Summarize(schedule, w),
			"schedule": schedule,
			"warnings": warnings,
		})
	}
	return printSchedule(out, schedule, warnings, w)
}

// decodeActivities accepts a bare activity array or an itinerary response.
func decodeActivities(data []byte) ([]itinerary.Activity, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		return resultapi.MapActivities(raw), nil
	}

	var wrapped struct {
		Data struct {
			Activities []map[string]any `json:"activities"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse activities: %w", err)
	}
	if wrapped.Data.Activities == nil {
		return nil, resultapi.ErrEmptyItinerary
	}
	return resultapi.MapActivities(wrapped.Data.Activities), nil
}

func parseMove(arg string) (from, to int, err error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --move %q: want from:to", arg)
	}
	if from, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, fmt.Errorf("invalid --move source %q: %w", parts[0], err)
	}
	if to, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, fmt.Errorf("invalid --move destination %q: %w", parts[1], err)
	}
	return from, to, nil
}

func printSchedule(out io.Writer, schedule []itinerary.ScheduledActivity, warnings []itinerary.Warning, w itinerary.Window) error {
	summary := itinerary.Summarize(schedule, w)
	fmt.Fprintf(out, "%d activities, %s\n\n", summary.Count, summary.Timeframe)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTIME\tACTIVITY\tCATEGORY\tHOURS")
	for i, s := range schedule {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%g\n", i, s.DisplayTime, s.Name, s.Category, s.SlotHours())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, warn := range warnings {
		fmt.Fprintf(out, "\nwarning: %s", warn.Message)
	}
	if len(warnings) > 0 {
		fmt.Fprintln(out)
	}
	return nil
}
