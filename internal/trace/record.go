// Package trace records the events a client receives and stores them as
// length-prefixed protobuf-wire records.
package trace

import (
	"fmt"
	"strings"

	"github.com/bnema/waycore/internal/resource"
)

// Record is one event as seen by the receiving client.
type Record struct {
	Object    resource.ObjectID
	Interface string
	Event     string
	Opcode    uint16
	Signature string
	Args      []any

	raw []byte
}

// Is reports whether the record was sent to obj.
func (r Record) Is(obj *resource.Object) bool {
	return obj != nil && r.Object == obj.ID()
}

// Call renders the event as name(args...), without the receiving object.
func (r Record) Call() string {
	parts := make([]string, len(r.Args))
	for i, a := range r.Args {
		switch v := a.(type) {
		case string:
			parts[i] = fmt.Sprintf("%q", v)
		case []byte:
			parts[i] = fmt.Sprintf("array[%d]", len(v))
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("%s(%s)", r.Event, strings.Join(parts, ", "))
}

func (r Record) String() string {
	return fmt.Sprintf("%s@%d.%s", r.Interface, r.Object.Protocol, r.Call())
}
