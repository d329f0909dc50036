package iox

import "io"

// ProgressFunc receives a completion percentage in [0, 100].
type ProgressFunc func(percent int)

// ProgressReader reports how much of a known-length stream has been read.
// The callback fires only when the rounded percentage changes, so reported
// values never decrease.
type ProgressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

// NewProgressReader wraps r, whose full length is total bytes.
// A nil fn disables reporting.
func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, last: -1, fn: fn}
}

// Read implements io.Reader.
func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report()
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (p *ProgressReader) BytesRead() int64 {
	return p.read
}

func (p *ProgressReader) report() {
	if p.fn == nil || p.total <= 0 {
		return
	}
	percent := Percent(p.read, p.total)
	if percent == p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}

// Percent returns round(done/total*100) clamped to [0, 100].
func Percent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	percent := int((done*100 + total/2) / total)
	return max(0, min(100, percent))
}
