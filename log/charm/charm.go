package charm

import (
	"github.com/charmbracelet/log"

	"github.com/unkn0wn-root/kvstore"
)

var _ kvstore.Logger = Logger{}

type Logger struct{ L *log.Logger }

func (c Logger) Debug(msg string, f kvstore.Fields) { c.L.Debug(msg, kv(f)...) }
func (c Logger) Info(msg string, f kvstore.Fields)  { c.L.Info(msg, kv(f)...) }
func (c Logger) Warn(msg string, f kvstore.Fields)  { c.L.Warn(msg, kv(f)...) }
func (c Logger) Error(msg string, f kvstore.Fields) { c.L.Error(msg, kv(f)...) }

func kv(f kvstore.Fields) []any {
	if len(f) == 0 {
		return nil
	}
	out := make([]any, 0, 2*len(f))
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
