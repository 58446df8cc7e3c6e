package internal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UIManager handles all user interface concerns (progress, verbose output, status lines)
type UIManager interface {
	// Progress bars
	NewProgressBar(total int, description string) ProgressBar
	NewSpinner(description string) ProgressBar

	// Verbose output
	Verbose(format string, args ...any)

	// Status messages
	Printf(format string, args ...any)
	Println(args ...any)
}

// ProgressBar interface abstracts progress bar operations
type ProgressBar interface {
	Set(current int)
	Advance()
	Describe(description string)
	Finish()
}

// StandardUIManager handles normal UI operations
type StandardUIManager struct {
	verbose     bool
	quiet       bool
	interactive bool
	out         io.Writer
}

func NewUIManager(verbose, quiet bool) UIManager {
	return &StandardUIManager{
		verbose:     verbose,
		quiet:       quiet,
		interactive: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		out:         os.Stdout,
	}
}

// bars are hidden when quiet or when stdout is piped
func (ui *StandardUIManager) showBars() bool {
	return !ui.quiet && ui.interactive
}

// Progress Bar Methods
func (ui *StandardUIManager) NewProgressBar(total int, description string) ProgressBar {
	if !ui.showBars() {
		return &SilentProgressBar{bar: progressbar.DefaultSilent(int64(total))}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &VisibleProgressBar{bar: bar}
}

func (ui *StandardUIManager) NewSpinner(description string) ProgressBar {
	if !ui.showBars() {
		return &SilentProgressBar{bar: progressbar.DefaultSilent(-1)}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish())
	return &VisibleProgressBar{bar: bar}
}

// Verbose Output Methods
func (ui *StandardUIManager) Verbose(format string, args ...any) {
	if ui.verbose {
		fmt.Fprintf(ui.out, format, args...)
	}
}

// Status Message Methods
func (ui *StandardUIManager) Printf(format string, args ...any) {
	if !ui.quiet {
		fmt.Fprintf(ui.out, format, args...)
	}
}

func (ui *StandardUIManager) Println(args ...any) {
	if !ui.quiet {
		fmt.Fprintln(ui.out, args...)
	}
}

// VisibleProgressBar wraps the actual progress bar
type VisibleProgressBar struct {
	bar *progressbar.ProgressBar
}

func (v *VisibleProgressBar) Set(current int) {
	_ = v.bar.Set(current)
}

func (v *VisibleProgressBar) Advance() {
	_ = v.bar.Add(1)
}

func (v *VisibleProgressBar) Describe(description string) {
	v.bar.Describe(description)
}

func (v *VisibleProgressBar) Finish() {
	_ = v.bar.Finish()
}

// SilentProgressBar implements a silent progress bar
type SilentProgressBar struct {
	bar *progressbar.ProgressBar
}

func (s *SilentProgressBar) Set(current int) {
	_ = s.bar.Set(current)
}

func (s *SilentProgressBar) Advance() {
	_ = s.bar.Add(1)
}

func (s *SilentProgressBar) Describe(description string) {}

func (s *SilentProgressBar) Finish() {
	_ = s.bar.Finish()
}

// BatchProgress renders batch item events on a single progress bar.
// Workers report concurrently, so every update happens under the mutex.
type BatchProgress struct {
	mu       sync.Mutex
	bar      ProgressBar
	done     int
	failed   int
	inFlight map[int]ItemStatus
}

// NewBatchProgress creates an observer for a batch of total items
func NewBatchProgress(ui UIManager, total int) *BatchProgress {
	return &BatchProgress{
		bar:      ui.NewProgressBar(total, "Processing videos"),
		inFlight: make(map[int]ItemStatus),
	}
}

// OnItemEvent implements BatchObserver
func (p *BatchProgress) OnItemEvent(event ItemEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Status.Terminal() {
		delete(p.inFlight, event.Index)
		p.done++
		if event.Status == StatusFailed {
			p.failed++
		}
		p.bar.Set(p.done)
	} else {
		p.inFlight[event.Index] = event.Status
	}

	p.bar.Describe(p.describe())
}

func (p *BatchProgress) describe() string {
	var downloading, transcribing, analyzing int
	for _, status := range p.inFlight {
		switch status {
		case StatusDownloading:
			downloading++
		case StatusTranscribing:
			transcribing++
		case StatusAnalyzing:
			analyzing++
		}
	}
	desc := fmt.Sprintf("dl %d | tr %d | an %d", downloading, transcribing, analyzing)
	if p.failed > 0 {
		desc += fmt.Sprintf(" | failed %d", p.failed)
	}
	return desc
}

// Counts returns how many items finished and how many of those failed
func (p *BatchProgress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

// Finish closes the underlying bar
func (p *BatchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Finish()
}
