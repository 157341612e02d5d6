package bot

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"codescanner/internal/capture"
	"codescanner/internal/model"
	"codescanner/internal/scanner"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		args    string
		want    int64
		wantErr bool
	}{
		{args: "5", want: 5},
		{args: " F12 ", want: 12},
		{args: "7 extra", want: 7},
		{args: "", wantErr: true},
		{args: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			got, err := ParseIDArg(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseIDArg mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		args    string
		want    int
		wantErr bool
	}{
		{args: "", want: 10},
		{args: "1", want: 1},
		{args: "50", want: 50},
		{args: "0", wantErr: true},
		{args: "51", wantErr: true},
		{args: "many", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			got, err := ParseLimit(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "1", "yes"} {
		if got, err := ParseOnOff(s); err != nil || !got {
			t.Errorf("ParseOnOff(%q) = %v, %v", s, got, err)
		}
	}
	for _, s := range []string{"off", "0", "no"} {
		if got, err := ParseOnOff(s); err != nil || got {
			t.Errorf("ParseOnOff(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseOnOff("dim"); err == nil {
		t.Error("expected error for dim")
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name    string
		rec     model.ScanRecord
		preview string
		want    string
	}{
		{
			name: "qr",
			rec:  model.ScanRecord{Payload: "XYZ123", Kind: model.KindQR},
			want: "[QR]\n\nXYZ123",
		},
		{
			name:    "with preview",
			rec:     model.ScanRecord{Payload: "https://pod.example/rss", Kind: model.KindQR},
			preview: "Feed: Pod (3 items)",
			want:    "[QR]\n\nhttps://pod.example/rss\n\nFeed: Pod (3 items)",
		},
		{
			name: "barcode",
			rec:  model.ScanRecord{Payload: "4006381333931", Kind: model.KindEAN13},
			want: "[EAN13]\n\n4006381333931",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatResult(tt.rec, tt.preview)); diff != "" {
				t.Errorf("FormatResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatFailure(t *testing.T) {
	rec := model.ScanRecord{ErrorKind: model.ErrorBadOutput, Detail: "camera cannot deliver frames for the requested codes"}
	want := "Scanner error (bad_output): camera cannot deliver frames for the requested codes"
	if diff := cmp.Diff(want, FormatFailure(rec)); diff != "" {
		t.Errorf("FormatFailure mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatHistory(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	records := []model.ScanRecord{
		{ErrorKind: model.ErrorInit, CreatedAt: at},
		{Payload: "hello", Kind: model.KindDataMatrix, CreatedAt: at},
	}
	want := "Recent results:\n" +
		"\n2024-06-01 08:30:00 UTC  error: init_error" +
		"\n2024-06-01 08:30:00 UTC  Data Matrix  hello"
	if diff := cmp.Diff(want, FormatHistory(records)); diff != "" {
		t.Errorf("FormatHistory mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name string
		st   capture.Status
		snap scanner.Snapshot
		want string
	}{
		{
			name: "finished once session",
			st:   capture.Status{Active: true, Running: true, Device: "Cam", RunID: "abc", TorchOn: true},
			snap: scanner.Snapshot{Mode: model.ModeOnce, Finished: true},
			want: "Scanner: scanning\nCamera: Cam\nRun: abc\nMode: once\n" +
				"Session: finished, /rescan to scan again\nTorch: on\nResults: 1 scanned, 0 errors",
		},
		{
			name: "unavailable",
			st:   capture.Status{SetupError: model.ErrBadInput()},
			snap: scanner.Snapshot{Mode: model.ModeContinuous},
			want: "Scanner: unavailable\nError: camera could not be attached as capture input\n" +
				"Mode: continuous\nTorch: off\nResults: 1 scanned, 0 errors",
		},
		{
			name: "starting",
			st:   capture.Status{Active: true},
			snap: scanner.Snapshot{Mode: model.ModeContinuous},
			want: "Scanner: starting\nMode: continuous\nTorch: off\nResults: 1 scanned, 0 errors",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatStatus(tt.st, tt.snap, 1, 0)); diff != "" {
				t.Errorf("FormatStatus mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
