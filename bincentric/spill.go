package bincentric

import (
	"bufio"
	"cmp"
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/klauspost/compress/s2"

	"github.com/uimfdata/uimf/encoding"
)

// spillRecord is one (bin, encoded scan index, intensity) triple in a spill
// run. Runs are sorted by (bin, scanIndex), so merging runs in that order
// reproduces the globally grouped stream.
type spillRecord struct {
	bin       int32
	scanIndex int64
	intensity int32
}

const spillRecordSize = 16

func (r spillRecord) less(o spillRecord) bool {
	if r.bin != o.bin {
		return r.bin < o.bin
	}
	return r.scanIndex < o.scanIndex
}

// spillRun is one sorted, S2-compressed temp file of spill records.
type spillRun struct {
	path  string
	pairs int64
}

func (r *spillRun) discard() {
	os.Remove(r.path)
}

// writeRun sorts the grouping and writes it out as one run. The group map
// is not modified; the caller discards it after a successful spill.
func writeRun(dir string, group map[int32][]encoding.Pair) (*spillRun, error) {
	bins := make([]int32, 0, len(group))
	for bin := range group {
		bins = append(bins, bin)
	}
	slices.Sort(bins)

	f, err := os.CreateTemp(dir, "uimf-bincentric-*.run")
	if err != nil {
		return nil, err
	}
	run := &spillRun{path: f.Name()}

	w := s2.NewWriter(f)
	var buf [spillRecordSize]byte
	for _, bin := range bins {
		pairs := group[bin]
		slices.SortFunc(pairs, func(a, b encoding.Pair) int {
			return cmp.Compare(a.Index, b.Index)
		})
		for _, pair := range pairs {
			binary.LittleEndian.PutUint32(buf[0:4], uint32(bin))
			binary.LittleEndian.PutUint64(buf[4:12], uint64(pair.Index))
			binary.LittleEndian.PutUint32(buf[12:16], uint32(pair.Value))
			if _, err := w.Write(buf[:]); err != nil {
				f.Close()
				run.discard()
				return nil, err
			}
			run.pairs++
		}
	}

	if err := w.Close(); err != nil {
		f.Close()
		run.discard()
		return nil, err
	}
	if err := f.Close(); err != nil {
		run.discard()
		return nil, err
	}

	return run, nil
}

// runReader streams one spill run back in sorted order.
type runReader struct {
	file *os.File
	r    io.Reader
	cur  spillRecord
	done bool
}

func openRun(run *spillRun) (*runReader, error) {
	f, err := os.Open(run.path)
	if err != nil {
		return nil, err
	}

	return &runReader{file: f, r: s2.NewReader(bufio.NewReader(f))}, nil
}

// advance reads the next record into cur, setting done at end of run.
func (r *runReader) advance() error {
	var buf [spillRecordSize]byte
	_, err := io.ReadFull(r.r, buf[:])
	if err == io.EOF {
		r.done = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read spill run: %w", err)
	}

	r.cur = spillRecord{
		bin:       int32(binary.LittleEndian.Uint32(buf[0:4])),
		scanIndex: int64(binary.LittleEndian.Uint64(buf[4:12])),
		intensity: int32(binary.LittleEndian.Uint32(buf[12:16])),
	}

	return nil
}

func (r *runReader) close() {
	r.file.Close()
}

// runHeap orders run readers by their current record.
type runHeap []*runReader

func (h runHeap) Len() int           { return len(h) }
func (h runHeap) Less(i, j int) bool { return h[i].cur.less(h[j].cur) }
func (h runHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)        { *h = append(*h, x.(*runReader)) }
func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// runMerge is a k-way merge over sorted spill runs.
type runMerge struct {
	readers []*runReader
	h       runHeap
}

func newRunMerge(runs []*spillRun) (*runMerge, error) {
	m := &runMerge{}
	for _, run := range runs {
		r, err := openRun(run)
		if err != nil {
			m.close()
			return nil, err
		}
		m.readers = append(m.readers, r)
		if err := r.advance(); err != nil {
			m.close()
			return nil, err
		}
		if !r.done {
			m.h = append(m.h, r)
		}
	}
	heap.Init(&m.h)

	return m, nil
}

// next returns the smallest remaining record across all runs.
func (m *runMerge) next() (spillRecord, bool, error) {
	if len(m.h) == 0 {
		return spillRecord{}, false, nil
	}

	r := m.h[0]
	rec := r.cur
	if err := r.advance(); err != nil {
		return spillRecord{}, false, err
	}
	if r.done {
		heap.Pop(&m.h)
	} else {
		heap.Fix(&m.h, 0)
	}

	return rec, true, nil
}

func (m *runMerge) close() {
	for _, r := range m.readers {
		r.close()
	}
}
