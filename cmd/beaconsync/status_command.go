package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"beaconsync/internal/align"
	"beaconsync/internal/config"
	"beaconsync/internal/ledger"
	"beaconsync/internal/preflight"
)

type statusOutput struct {
	ConfigPath   string             `json:"config_path"`
	ConfigExists bool               `json:"config_exists"`
	Checks       []preflight.Result `json:"checks"`
	// ChirpsInUse is set when align.method runs the chirp detector, which
	// turns a failed rehearsal into an error.
	ChirpsInUse    bool                  `json:"chirps_in_use"`
	Rehearsal      *align.Rehearsal      `json:"chirp_rehearsal,omitempty"`
	RehearsalError string                `json:"chirp_rehearsal_error,omitempty"`
	Ledger         map[ledger.Status]int `json:"ledger,omitempty"`
	LedgerError    string                `json:"ledger_error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check tools, directories, and the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result := statusOutput{
				ConfigPath:   ctx.configPath,
				ConfigExists: ctx.configExists,
				Checks:       preflight.RunAll(cmd.Context(), cfg),
				ChirpsInUse:  cfg.Align.Method != config.MethodBeacon,
			}
			rehearsal, err := align.RehearseChirps(cfg.ProtocolConfig(), cfg.ChirpParams())
			if err != nil {
				result.RehearsalError = err.Error()
			} else {
				result.Rehearsal = &rehearsal
			}
			ledgerErr := ctx.withLedger(cmd.Context(), func(store *ledger.Store) error {
				stats, err := store.Stats(cmd.Context())
				result.Ledger = stats
				return err
			})
			if ledgerErr != nil {
				result.LedgerError = ledgerErr.Error()
			}

			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				renderStatus(cmd, result)
			}
			if failed := preflight.Failed(result.Checks); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			if ledgerErr != nil {
				return errors.New("ledger is unavailable")
			}
			if result.ChirpsInUse && !result.rehearsalPassed() {
				return fmt.Errorf("chirp detector cannot recover the configured protocol (align.method=%s)", cfg.Align.Method)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func renderStatus(cmd *cobra.Command, result statusOutput) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Configuration", colorize) {
		fmt.Fprintln(out, line)
	}
	configKind := statusOK
	configMsg := result.ConfigPath
	if !result.ConfigExists {
		configKind = statusWarn
		configMsg = result.ConfigPath + " (not found, using defaults)"
	}
	fmt.Fprintln(out, renderStatusLine("Config", configKind, configMsg, colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range result.Checks {
		fmt.Fprintln(out, renderStatusLine(check.Name, passKind(check.Passed), check.Detail, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Protocol", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Chirp rehearsal", result.rehearsalKind(), result.rehearsalDetail(), colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Ledger", colorize) {
		fmt.Fprintln(out, line)
	}
	if result.LedgerError != "" {
		fmt.Fprintln(out, renderStatusLine("Ledger", statusError, result.LedgerError, colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Aligned", statusInfo, formatCount(result.Ledger[ledger.StatusAligned]), colorize))
	failedKind := statusInfo
	if result.Ledger[ledger.StatusFailed] > 0 {
		failedKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, formatCount(result.Ledger[ledger.StatusFailed]), colorize))
}

func (s statusOutput) rehearsalPassed() bool {
	return s.Rehearsal != nil && s.Rehearsal.Recovered()
}

// rehearsalKind only reports an error when alignment depends on chirps.
func (s statusOutput) rehearsalKind() statusKind {
	switch {
	case s.rehearsalPassed():
		return statusOK
	case s.ChirpsInUse:
		return statusError
	default:
		return statusWarn
	}
}

func (s statusOutput) rehearsalDetail() string {
	if s.Rehearsal == nil {
		return s.RehearsalError
	}
	return s.Rehearsal.Summary()
}
