package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/schollz/progressbar/v3"
)

// progress рисует полосу прогресса; создаётся лениво, когда известно число элементов.
type progress struct {
	mu          sync.Mutex
	bar         *progressbar.ProgressBar
	description string
	out         io.Writer
}

func newProgress(description string) *progress {
	return &progress{description: description, out: os.Stderr}
}

func (p *progress) start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", p.description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

func (p *progress) step() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func printReport(w io.Writer, title string, report *usecase.IngestReport) {
	fmt.Fprintf(w, "%s: %d total, %d succeeded, %d failed\n", title, report.Total, report.Succeeded, report.Failed)
	for _, msg := range report.Errors {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}
