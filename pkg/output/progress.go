package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/drivesync/pkg/models"
)

const barTemplate = `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{speed . }}`

// getUpdateInterval returns the bar refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a byte progress bar for each download
type ProgressFormatter struct {
	writer    io.Writer
	startTime time.Time
	termWidth int

	mu  sync.Mutex
	bar *pb.ProgressBar
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, op *models.MirrorOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.startTime = time.Now()

	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}
	// pipe or redirect
	if f.termWidth == 0 {
		f.termWidth = 120
	}

	fmt.Fprintf(f.writer, "Mirroring %s into %s\n", op.RootID, op.LocalRoot)
	return nil
}

// Progress reports progress during the run
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case UpdateFileSkip:
		fmt.Fprintln(f.writer, f.truncateLine("✓ "+update.Path))

	case UpdateFileStart:
		if update.DryRun {
			fmt.Fprintln(f.writer, f.truncateLine("↓ (dry run) "+update.Path))
			return nil
		}
		f.finishBar()
		f.bar = pb.New64(update.TotalBytes).SetTemplateString(barTemplate)
		f.bar.SetWriter(f.writer)
		f.bar.SetWidth(f.termWidth)
		f.bar.SetRefreshRate(getUpdateInterval())
		f.bar.Set(pb.Bytes, true)
		f.bar.Set("prefix", f.truncatePrefix("↓ "+update.Path))
		f.bar.Start()

	case UpdateFileProgress:
		if f.bar != nil {
			if update.TotalBytes > f.bar.Total() {
				f.bar.SetTotal(update.TotalBytes)
			}
			f.bar.SetCurrent(update.BytesWritten)
		}

	case UpdateFileComplete:
		if f.bar != nil {
			if update.BytesWritten > f.bar.Total() {
				f.bar.SetTotal(update.BytesWritten)
			}
			f.bar.SetCurrent(update.BytesWritten)
			f.finishBar()
		}

	case UpdateFileError:
		f.finishBar()
		fmt.Fprintln(f.writer, f.truncateLine(fmt.Sprintf("✗ %s: %v", update.Path, update.Error)))

	case UpdateFileUnsupported:
		fmt.Fprintln(f.writer, f.truncateLine("⚠ unsupported: "+update.Path))
	}

	return nil
}

// finishBar must be called with the lock held
func (f *ProgressFormatter) finishBar() {
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}

// truncateLine ensures a line doesn't exceed terminal width
func (f *ProgressFormatter) truncateLine(line string) string {
	runes := []rune(line)
	if f.termWidth > 3 && len(runes) > f.termWidth {
		return string(runes[:f.termWidth-3]) + "..."
	}
	return line
}

// truncatePrefix leaves room for the bar itself
func (f *ProgressFormatter) truncatePrefix(prefix string) string {
	limit := f.termWidth / 2
	runes := []rune(prefix)
	if limit > 3 && len(runes) > limit {
		return "..." + string(runes[len(runes)-limit+3:])
	}
	return prefix
}

// Complete finalizes output and displays summary
func (f *ProgressFormatter) Complete(s *models.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	if f.writer == nil {
		f.writer = io.Discard
	}
	writeSummary(f.writer, s)
	return nil
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	if f.writer != nil {
		fmt.Fprintf(f.writer, "\n❌ Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
