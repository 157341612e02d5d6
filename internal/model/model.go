// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// CodeKind identifies the symbology of a recognized code.
type CodeKind string

// Supported code kinds.
const (
	KindQR         CodeKind = "qr"
	KindAztec      CodeKind = "aztec"
	KindDataMatrix CodeKind = "data_matrix"
	KindPDF417     CodeKind = "pdf417"
	KindCode128    CodeKind = "code128"
	KindCode39     CodeKind = "code39"
	KindCode93     CodeKind = "code93"
	KindEAN8       CodeKind = "ean8"
	KindEAN13      CodeKind = "ean13"
	KindUPCE       CodeKind = "upce"
	KindITF14      CodeKind = "itf14"
)

var knownKinds = map[CodeKind]bool{
	KindQR: true, KindAztec: true, KindDataMatrix: true, KindPDF417: true,
	KindCode128: true, KindCode39: true, KindCode93: true,
	KindEAN8: true, KindEAN13: true, KindUPCE: true, KindITF14: true,
}

// ParseCodeKind converts a name such as "qr" or "EAN13" into a CodeKind.
func ParseCodeKind(s string) (CodeKind, error) {
	k := CodeKind(strings.ToLower(strings.TrimSpace(s)))
	if !knownKinds[k] {
		return "", fmt.Errorf("unknown code kind %q", s)
	}
	return k, nil
}

// ScanEvent is one recognized code surfaced by the frame analyzer for a single frame.
type ScanEvent struct {
	Payload string
	Kind    CodeKind
}

// ScanMode selects which events become delivered results.
type ScanMode string

// Supported scan modes.
const (
	// ModeOnce delivers exactly one result, then latches until reset.
	ModeOnce ScanMode = "once"
	// ModeOncePerCode delivers each distinct payload at most once.
	ModeOncePerCode ScanMode = "once_per_code"
	// ModeContinuous delivers repeatedly, no more often than the scan interval.
	ModeContinuous ScanMode = "continuous"
)

// ParseScanMode converts a configuration value into a ScanMode.
// Hyphens and camel case variants ("once-per-code", "oncePerCode") are accepted.
func ParseScanMode(s string) (ScanMode, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "").Replace(norm)
	switch norm {
	case "once":
		return ModeOnce, nil
	case "oncepercode":
		return ModeOncePerCode, nil
	case "continuous":
		return ModeContinuous, nil
	}
	return "", fmt.Errorf("unknown scan mode %q", s)
}

// Success is the payload of a successful scan.
type Success struct {
	Payload string
	Kind    CodeKind
}

// ScanResult is the outcome delivered to the caller.
// Exactly one of Success and Failure is set.
type ScanResult struct {
	Success *Success
	Failure *ScanError
	At      time.Time
}

// Succeeded builds a success result from an event.
func Succeeded(ev ScanEvent, at time.Time) ScanResult {
	return ScanResult{Success: &Success{Payload: ev.Payload, Kind: ev.Kind}, At: at}
}

// Failed builds a failure result.
func Failed(err *ScanError, at time.Time) ScanResult {
	return ScanResult{Failure: err, At: at}
}

// IsSuccess reports whether the result carries a decoded payload.
func (r ScanResult) IsSuccess() bool {
	return r.Success != nil
}

// ScanRecord is a delivered result as kept in the scan history.
type ScanRecord struct {
	ID        int64
	RunID     string
	Payload   string
	Kind      CodeKind
	ErrorKind ErrorKind
	Detail    string
	CreatedAt time.Time
}

// Failed reports whether the record stores a failure.
func (r ScanRecord) Failed() bool {
	return r.ErrorKind != ""
}

// FilterKind defines the type of filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// Filter is a payload rule deciding which results are forwarded to a chat.
type Filter struct {
	ID        int64
	ChatID    int64
	Kind      FilterKind
	Value     string
	CreatedAt time.Time
}
