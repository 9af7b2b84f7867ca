package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

// runAuditCmd audits an evidence bag file offline. Exit status is 0 when
// the report is produced, whatever its verdict.
func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var (
		claimID  = cmd.String("claim", "", "claim id recorded in the report")
		incident = cmd.String("incident-date", "", "declared incident date; overrides the police report")
	)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: claimrisk audit [--claim ID] [--incident-date DATE] <evidence.json>")
		return 2
	}

	raw, err := os.ReadFile(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var bag evidence.Bag
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&bag); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid evidence file: %v\n", err)
		return 1
	}

	report := trinity.AuditClaim(&bag, trinity.ClaimMeta{ClaimID: *claimID, IncidentDate: *incident})
	if report.Digest, err = trinity.Digest(report); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
