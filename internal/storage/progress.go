package storage

import (
	"io"
	"sync"
)

// ProgressFunc receives the transferred fraction in [0, 1].
type ProgressFunc func(fraction float64)

// ProgressReader reports how much of a known total has been read.
type ProgressReader struct {
	r        io.Reader
	total    int64
	read     int64
	report   ProgressFunc
	mu       sync.Mutex
	last     float64
	finished bool
}

// NewProgressReader wraps r. A non-positive total reports only completion.
func NewProgressReader(r io.Reader, total int64, report ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, report: report, last: -1}
}

func (p *ProgressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.read += int64(n)
	if p.total > 0 && n > 0 {
		p.emit(float64(p.read) / float64(p.total))
	}
	if err == io.EOF {
		p.emit(1)
		p.finished = true
	}
	return n, err
}

// emit keeps the reported sequence monotonic and capped at 1.
func (p *ProgressReader) emit(fraction float64) {
	if p.report == nil || p.finished {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction <= p.last {
		return
	}
	p.last = fraction
	p.report(fraction)
}
