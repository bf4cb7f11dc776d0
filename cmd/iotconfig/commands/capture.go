package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/log"
)

const captureTimeLayout = "2006-01-02T15:04:05.000000Z"

func (a *App) captureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Inspect protocol capture files written with --protocol-log",
	}
	cmd.AddCommand(
		a.captureViewCommand(),
		a.captureStatsCommand(),
		a.captureExportCommand(),
		a.captureFilterCommand(),
	)
	return cmd
}

// captureFilterFlags are the event selection flags shared by the capture
// commands.
type captureFilterFlags struct {
	requestID string
	method    string
	direction string
	category  string
	timeStart string
	timeEnd   string
}

func (f *captureFilterFlags) bind(cmd *cobra.Command, withTime bool) {
	cmd.Flags().StringVar(&f.requestID, "request-id", "", "only events of this request")
	cmd.Flags().StringVar(&f.method, "method", "", "only events of this gRPC method")
	cmd.Flags().StringVar(&f.direction, "direction", "", "filter by direction (in, out)")
	cmd.Flags().StringVar(&f.category, "category", "", "filter by category (message, stream, error)")
	if withTime {
		cmd.Flags().StringVar(&f.timeStart, "time-start", "", "events at or after this time (RFC3339)")
		cmd.Flags().StringVar(&f.timeEnd, "time-end", "", "events before this time (RFC3339)")
	}
}

// filter builds a log.Filter from the flags.
func (f *captureFilterFlags) filter() (log.Filter, error) {
	filter := log.Filter{RequestID: f.requestID, Method: f.method}

	if f.direction != "" {
		d, ok := log.ParseDirection(strings.ToLower(f.direction))
		if !ok {
			return filter, fmt.Errorf("invalid direction: %s (must be in or out)", f.direction)
		}
		filter.Direction = &d
	}
	if f.category != "" {
		c, ok := log.ParseCategory(strings.ToLower(f.category))
		if !ok {
			return filter, fmt.Errorf("invalid category: %s (must be message, stream, or error)", f.category)
		}
		filter.Category = &c
	}
	if f.timeStart != "" {
		t, err := time.Parse(time.RFC3339, f.timeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if f.timeEnd != "" {
		t, err := time.Parse(time.RFC3339, f.timeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// eachEvent calls fn for every event of path that matches filter.
func eachEvent(path string, filter log.Filter, fn func(log.Event) error) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

func (a *App) captureViewCommand() *cobra.Command {
	var flags captureFilterFlags
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Show a capture file in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return RunView(args[0], filter, a.Out)
		},
	}
	flags.bind(cmd, false)
	return cmd
}

// RunView writes every matching event of a capture file to w.
func RunView(path string, filter log.Filter, w io.Writer) error {
	return eachEvent(path, filter, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(captureTimeLayout)
	fmt.Fprintf(w, "%s [req:%s] %-3s %s %s\n",
		ts, shortenID(event.RequestID), event.Direction, eventLabel(event), event.Method)

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event)
	case event.Stream != nil:
		if event.Stream.Kind == log.StreamClose {
			fmt.Fprintf(w, "  Count: %d\n", event.Stream.Count)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Code != "" {
			fmt.Fprintf(w, "  Code: %s\n", event.Error.Code)
		}
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}

// eventLabel names the payload kind of an event.
func eventLabel(event log.Event) string {
	switch {
	case event.Message != nil:
		return event.Message.Type.String()
	case event.Stream != nil:
		return "STREAM_" + event.Stream.Kind.String()
	case event.Error != nil:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatMessageDetails(w io.Writer, event log.Event) {
	msg := event.Message
	if msg.Sequence > 0 {
		fmt.Fprintf(w, "  Sequence: %d\n", msg.Sequence)
	}
	if event.Host != "" && msg.Type == log.MessageTypeRequest {
		fmt.Fprintf(w, "  Host: %s\n", event.Host)
	}
	if event.Signer != "" {
		fmt.Fprintf(w, "  Signer: %s\n", event.Signer)
	}
	if msg.SignedAt != 0 {
		fmt.Fprintf(w, "  SignedAt: %s\n", time.UnixMilli(int64(msg.SignedAt)).UTC().Format(time.RFC3339Nano))
	}
	if len(msg.Signature) > 0 {
		fmt.Fprintf(w, "  Signature: %s\n", hex.EncodeToString(msg.Signature))
	}
	if msg.Latency != nil {
		fmt.Fprintf(w, "  Latency: %s\n", formatDuration(*msg.Latency))
	}
	if msg.Payload != nil {
		if data, err := json.Marshal(log.JSONValue(msg.Payload)); err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", data)
		}
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// CaptureStats holds aggregate statistics about a capture file.
type CaptureStats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Requests          map[string]*RequestStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// RequestStats holds statistics for a single RPC.
type RequestStats struct {
	Method     string
	FirstSeen  time.Time
	Events     int
	Responses  int
	MaxLatency time.Duration
	Failed     bool
}

func (a *App) captureStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return RunStats(args[0], a.Out)
		},
	}
}

// RunStats analyzes a capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats := &CaptureStats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Requests:          make(map[string]*RequestStats),
	}

	err := eachEvent(path, log.Filter{}, func(event log.Event) error {
		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		req, ok := stats.Requests[event.RequestID]
		if !ok {
			req = &RequestStats{Method: event.Method, FirstSeen: event.Timestamp}
			stats.Requests[event.RequestID] = req
		}
		req.Events++
		if msg := event.Message; msg != nil && msg.Type == log.MessageTypeResponse {
			req.Responses++
			if msg.Latency != nil && *msg.Latency > req.MaxLatency {
				req.MaxLatency = *msg.Latency
			}
		}
		if event.Error != nil {
			stats.Errors++
			req.Failed = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *CaptureStats) {
	fmt.Fprintln(w, "=== Protocol Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryStream, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Requests: %d\n", len(stats.Requests))
	if len(stats.Requests) > 0 {
		type reqInfo struct {
			id    string
			stats *RequestStats
		}
		reqs := make([]reqInfo, 0, len(stats.Requests))
		for id, rs := range stats.Requests {
			reqs = append(reqs, reqInfo{id, rs})
		}
		sort.Slice(reqs, func(i, j int) bool {
			return reqs[i].stats.FirstSeen.Before(reqs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, r := range reqs {
			status := "ok"
			if r.stats.Failed {
				status = "failed"
			}
			fmt.Fprintf(w, "  [%s] %s %d events, %d responses, %s\n",
				shortenID(r.id), r.stats.Method, r.stats.Events, r.stats.Responses, status)
			if r.stats.MaxLatency > 0 {
				fmt.Fprintf(w, "           Latency: %s\n", formatDuration(r.stats.MaxLatency))
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func (a *App) captureExportCommand() *cobra.Command {
	var (
		format string
		output string
		flags  captureFilterFlags
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a capture file as JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			w := a.Out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return RunExport(args[0], format, filter, w)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	flags.bind(cmd, true)
	return cmd
}

// RunExport writes the matching events of a capture file to w.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	switch format {
	case "jsonl":
		return exportJSONL(path, filter, w)
	case "csv":
		return exportCSV(path, filter, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

type jsonMessage struct {
	Type      string `json:"type"`
	Sequence  uint32 `json:"sequence"`
	SignedAt  uint64 `json:"signed_at,omitempty"`
	Signature string `json:"signature,omitempty"`
	LatencyNs int64  `json:"latency_ns,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

type jsonStream struct {
	Kind  string `json:"kind"`
	Count uint32 `json:"count,omitempty"`
}

type jsonError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Context string `json:"context,omitempty"`
}

// jsonEvent is the export form of log.Event.
type jsonEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	RequestID string       `json:"request_id"`
	Direction string       `json:"direction"`
	Category  string       `json:"category"`
	Method    string       `json:"method,omitempty"`
	Host      string       `json:"host,omitempty"`
	Signer    string       `json:"signer,omitempty"`
	Message   *jsonMessage `json:"message,omitempty"`
	Stream    *jsonStream  `json:"stream,omitempty"`
	Error     *jsonError   `json:"error,omitempty"`
}

func toJSONEvent(event log.Event) jsonEvent {
	out := jsonEvent{
		Timestamp: event.Timestamp.UTC(),
		RequestID: event.RequestID,
		Direction: event.Direction.String(),
		Category:  event.Category.String(),
		Method:    event.Method,
		Host:      event.Host,
		Signer:    event.Signer,
	}
	if m := event.Message; m != nil {
		jm := &jsonMessage{
			Type:      m.Type.String(),
			Sequence:  m.Sequence,
			SignedAt:  m.SignedAt,
			Signature: hex.EncodeToString(m.Signature),
			Payload:   log.JSONValue(m.Payload),
		}
		if m.Latency != nil {
			jm.LatencyNs = m.Latency.Nanoseconds()
		}
		out.Message = jm
	}
	if s := event.Stream; s != nil {
		out.Stream = &jsonStream{Kind: s.Kind.String(), Count: s.Count}
	}
	if e := event.Error; e != nil {
		out.Error = &jsonError{Message: e.Message, Code: e.Code, Context: e.Context}
	}
	return out
}

func exportJSONL(path string, filter log.Filter, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return eachEvent(path, filter, func(event log.Event) error {
		if err := encoder.Encode(toJSONEvent(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

func exportCSV(path string, filter log.Filter, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"timestamp", "request_id", "direction", "category", "method", "type", "sequence", "latency_ns", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	err := eachEvent(path, filter, func(event log.Event) error {
		var seq, latency, errMsg string
		if m := event.Message; m != nil {
			seq = strconv.FormatUint(uint64(m.Sequence), 10)
			if m.Latency != nil {
				latency = strconv.FormatInt(m.Latency.Nanoseconds(), 10)
			}
		}
		if event.Error != nil {
			errMsg = event.Error.Message
		}
		row := []string{
			event.Timestamp.UTC().Format(captureTimeLayout),
			event.RequestID,
			event.Direction.String(),
			event.Category.String(),
			event.Method,
			eventLabel(event),
			seq,
			latency,
			errMsg,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

func (a *App) captureFilterCommand() *cobra.Command {
	var (
		output string
		flags  captureFilterFlags
	)
	cmd := &cobra.Command{
		Use:   "filter <file>",
		Short: "Write the matching events of a capture file to a new capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			count, err := RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			a.print(Success(fmt.Sprintf("filtered %d events to %s", count, output)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output capture file")
	_ = cmd.MarkFlagRequired("output")
	flags.bind(cmd, true)
	return cmd
}

// RunFilter copies the matching events of path to a new capture file and
// returns how many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	err = eachEvent(path, filter, func(event log.Event) error {
		logger.Log(event)
		count++
		return nil
	})
	if cerr := logger.Close(); err == nil {
		err = cerr
	}
	if err == nil && logger.Errors() > 0 {
		err = fmt.Errorf("failed to write %d events", logger.Errors())
	}
	return count, err
}
