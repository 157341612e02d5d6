package bot

import (
	"fmt"
	"strings"

	"codescanner/internal/capture"
	"codescanner/internal/model"
	"codescanner/internal/scanner"
)

const timeFormat = "2006-01-02 15:04:05 UTC"

// FormatResult formats a scanned code as a chat notification.
func FormatResult(rec model.ScanRecord, preview string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n\n", kindLabel(rec.Kind))
	b.WriteString(rec.Payload)
	if preview != "" {
		b.WriteString("\n\n")
		b.WriteString(preview)
	}
	return b.String()
}

// FormatFailure formats a capture setup failure.
func FormatFailure(rec model.ScanRecord) string {
	return fmt.Sprintf("Scanner error (%s): %s", rec.ErrorKind, rec.Detail)
}

// FormatHistory formats stored results, newest first.
func FormatHistory(records []model.ScanRecord) string {
	if len(records) == 0 {
		return "No codes scanned yet."
	}
	var b strings.Builder
	b.WriteString("Recent results:\n")
	for _, r := range records {
		ts := r.CreatedAt.UTC().Format(timeFormat)
		if r.Failed() {
			fmt.Fprintf(&b, "\n%s  error: %s", ts, r.ErrorKind)
			continue
		}
		fmt.Fprintf(&b, "\n%s  %s  %s", ts, kindLabel(r.Kind), r.Payload)
	}
	return b.String()
}

// FormatStatus formats the capture and controller state.
func FormatStatus(st capture.Status, snap scanner.Snapshot, succeeded, failed int) string {
	var b strings.Builder

	state := "stopped"
	switch {
	case st.SetupError != nil:
		state = "unavailable"
	case st.Active && st.Running:
		state = "scanning"
	case st.Active:
		state = "starting"
	}
	fmt.Fprintf(&b, "Scanner: %s\n", state)
	if st.Device != "" {
		fmt.Fprintf(&b, "Camera: %s\n", st.Device)
	}
	if st.SetupError != nil {
		fmt.Fprintf(&b, "Error: %v\n", st.SetupError)
	}
	if st.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", shortRun(st.RunID))
	}
	fmt.Fprintf(&b, "Mode: %s\n", modeLabel(snap.Mode))
	switch {
	case snap.Finished:
		b.WriteString("Session: finished, /rescan to scan again\n")
	case snap.Mode == model.ModeOncePerCode:
		fmt.Fprintf(&b, "Session: %d distinct codes seen\n", snap.Seen)
	}
	torch := "off"
	if st.TorchOn {
		torch = "on"
	}
	fmt.Fprintf(&b, "Torch: %s\n", torch)
	fmt.Fprintf(&b, "Results: %d scanned, %d errors", succeeded, failed)
	return b.String()
}

// FormatFilterList formats the chat's filter rules grouped by kind.
func FormatFilterList(filters []model.Filter) string {
	if len(filters) == 0 {
		return "No filters. Every scanned code is forwarded.\nUse /include, /exclude, /include_re, /exclude_re to add filters."
	}

	groups := map[string][]model.Filter{}
	for _, f := range filters {
		name := filterGroup(f.Kind)
		groups[name] = append(groups[name], f)
	}

	var b strings.Builder
	b.WriteString("Filters:\n")

	order := []string{"Include (word)", "Include (regex)", "Exclude (word)", "Exclude (regex)"}
	for _, groupName := range order {
		fs := groups[groupName]
		if len(fs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", groupName)
		for _, f := range fs {
			fmt.Fprintf(&b, "  F%d: %s\n", f.ID, f.Value)
		}
	}
	return b.String()
}

func filterGroup(k model.FilterKind) string {
	switch k {
	case model.FilterInclude:
		return "Include (word)"
	case model.FilterIncludeRe:
		return "Include (regex)"
	case model.FilterExclude:
		return "Exclude (word)"
	default:
		return "Exclude (regex)"
	}
}

func kindLabel(k model.CodeKind) string {
	switch k {
	case model.KindQR:
		return "QR"
	case model.KindDataMatrix:
		return "Data Matrix"
	case model.KindPDF417:
		return "PDF417"
	case "":
		return "code"
	}
	return strings.ToUpper(string(k))
}

func modeLabel(m model.ScanMode) string {
	switch m {
	case model.ModeOncePerCode:
		return "once per code"
	case model.ModeContinuous:
		return "continuous"
	}
	return "once"
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
