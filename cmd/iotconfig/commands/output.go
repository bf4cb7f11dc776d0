package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iotconfig/iotconfig-go/pkg/client"
	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
)

type msgKind uint8

const (
	msgDryRun msgKind = iota
	msgSuccess
	msgFailure
)

// Msg is a command result line.
type Msg struct {
	kind msgKind
	text string
}

// DryRun marks output of a mutating command run without --commit.
func DryRun(text string) Msg { return Msg{kind: msgDryRun, text: text} }

// Success marks a completed command.
func Success(text string) Msg { return Msg{kind: msgSuccess, text: text} }

// Failure marks a failed command.
func Failure(text string) Msg { return Msg{kind: msgFailure, text: text} }

func (m Msg) String() string {
	switch m.kind {
	case msgDryRun:
		return "== DRY RUN == (pass `--commit`)\n" + m.text
	case msgSuccess:
		return "✓ " + m.text
	default:
		return "✗ " + m.text
	}
}

// prettyJSON renders v with two-space indentation.
func prettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *App) print(m Msg) {
	fmt.Fprintln(a.Out, m)
}

// printJSON prints v as a success result.
func (a *App) printJSON(v any) error {
	s, err := prettyJSON(v)
	if err != nil {
		return err
	}
	a.print(Success(s))
	return nil
}

// printDryRun prints the request a mutating command would send.
func (a *App) printDryRun(action string, v any) error {
	s, err := prettyJSON(v)
	if err != nil {
		return err
	}
	a.print(DryRun(action + "\n" + s))
	return nil
}

type batchFailure[I any] struct {
	Item  I      `json:"item"`
	Error string `json:"error"`
}

type batchSummary[I any] struct {
	Sent   []I               `json:"sent"`
	Failed []batchFailure[I] `json:"failed,omitempty"`
}

// printBatch prints the per-element outcome of a batch. A signing failure
// that left elements unsent is reported after the summary.
func printBatch[I any](a *App, report *client.BatchReport[I], err error) error {
	if report == nil {
		return err
	}
	summary := batchSummary[I]{Sent: report.Sent}
	if summary.Sent == nil {
		summary.Sent = []I{}
	}
	for _, f := range report.Failed {
		summary.Failed = append(summary.Failed, batchFailure[I]{Item: f.Input, Error: f.Err.Error()})
	}
	s, jerr := prettyJSON(summary)
	if jerr != nil {
		return errors.Join(err, jerr)
	}
	if err != nil {
		fmt.Fprintln(a.Out, s)
		return err
	}
	a.print(Success(s))
	return nil
}

// Hex arguments are accepted in either case and parsed upper-cased.

func parseEUI(s string) (hexfield.EUI, error) {
	return hexfield.ParseEUI(strings.ToUpper(s))
}

func parseDevAddr(s string) (hexfield.DevAddr, error) {
	return hexfield.ParseDevAddr(strings.ToUpper(s))
}

func parseNetID(s string) (hexfield.NetID, error) {
	return hexfield.ParseNetID(strings.ToUpper(s))
}

// oui returns the --oui flag when given, otherwise the configured OUI.
func (a *App) oui(cmd *cobra.Command, flag uint64) (uint64, error) {
	if cmd.Flags().Changed("oui") {
		return flag, nil
	}
	if a.settings.Oui != 0 {
		return a.settings.Oui, nil
	}
	return 0, errors.New("no oui: pass --oui or set HELIUM_OUI")
}

// netID returns the --net-id flag when given, otherwise the configured NetID.
func (a *App) netID(cmd *cobra.Command, flag string) (hexfield.NetID, error) {
	if cmd.Flags().Changed("net-id") {
		return parseNetID(flag)
	}
	return a.settings.NetID, nil
}

// maxCopies returns the --max-copies flag when given, otherwise the
// configured default.
func (a *App) maxCopies(cmd *cobra.Command, flag uint32) uint32 {
	if cmd.Flags().Changed("max-copies") {
		return flag
	}
	return a.settings.MaxCopies
}
