package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/archaeologist/internal/indexer"
)

// ProgressObserver draws a progress bar over the files of one run.
type ProgressObserver struct {
	indexer.NoOpObserver

	w       io.Writer
	fileBar *progressbar.ProgressBar
}

// NewProgressObserver creates a progress observer writing to w.
func NewProgressObserver(w io.Writer) *ProgressObserver {
	return &ProgressObserver{w: w}
}

func (p *ProgressObserver) OnDiscoveryComplete(runID string, files int) {
	fmt.Fprintf(p.w, "Ingesting %s files\n", formatNumber(files))

	p.fileBar = progressbar.NewOptions(files,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Building import graph"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *ProgressObserver) OnFileProcessed(runID string, path string, processed, total int) {
	if p.fileBar != nil {
		p.fileBar.Add(1)
	}
}

func (p *ProgressObserver) OnComplete(r *indexer.Result) {
	if p.fileBar != nil {
		p.fileBar.Finish()
		p.fileBar = nil
	}
	fmt.Fprintf(p.w, "✓ Graph built: %s files, %s edges (took %.1fs)\n",
		formatNumber(r.FilesParsed), formatNumber(r.EdgesMerged), r.Duration.Seconds())
}

func (p *ProgressObserver) OnFailed(runID string, err error) {
	if p.fileBar != nil {
		p.fileBar.Exit()
		p.fileBar = nil
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, "✗ Ingestion failed, previous graph kept")
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	str := fmt.Sprintf("%d", n)
	if n < 1000 && n > -1000 {
		return str
	}

	var result []byte
	start := 0
	if str[0] == '-' {
		result = append(result, '-')
		start = 1
	}
	digits := str[start:]
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digits[i])
	}
	return string(result)
}
