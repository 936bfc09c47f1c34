package trace

import (
	"fmt"
	"io"
	"sync"

	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/wire"
)

// Recorder is a client sink that keeps every event it receives in order and
// optionally copies them to a trace stream.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	out     io.Writer
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Tee copies every subsequent record to w as a framed trace record.
func (r *Recorder) Tee(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = w
}

// NewRecord decodes an event sent to obj using the interface's signature.
func NewRecord(obj *resource.Object, msg *wire.Message) (Record, error) {
	ev, ok := obj.Interface().Event(msg.Opcode)
	if !ok {
		return Record{}, fmt.Errorf("unknown event %d on %s", msg.Opcode, obj)
	}
	args, err := msg.Decode(ev.Signature)
	if err != nil {
		return Record{}, fmt.Errorf("decoding %s.%s: %w", obj.Interface().Name, ev.Name, err)
	}

	return Record{
		Object:    obj.ID(),
		Interface: obj.Interface().Name,
		Event:     ev.Name,
		Opcode:    msg.Opcode,
		Signature: ev.Signature,
		Args:      args,
		raw:       append([]byte(nil), msg.Args()...),
	}, nil
}

// Send implements resource.Sink.
func (r *Recorder) Send(obj *resource.Object, msg *wire.Message) error {
	rec, err := NewRecord(obj, msg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if r.out != nil {
		if err := WriteRecord(r.out, rec); err != nil {
			return fmt.Errorf("failed to write trace record: %w", err)
		}
	}
	return nil
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// For returns the records sent to obj.
func (r *Recorder) For(obj *resource.Object) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Record
	for _, rec := range r.records {
		if rec.Is(obj) {
			out = append(out, rec)
		}
	}
	return out
}

// Calls returns the rendered calls sent to obj, e.g. "down(1, 0, 3, 0, 5, 2)".
func (r *Recorder) Calls(obj *resource.Object) []string {
	recs := r.For(obj)
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.Call()
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
