package ir

import "tlog.app/go/tlog/tlwire"

func (f *Func) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if f == nil {
		return e.AppendString(b, "<nil>")
	}

	return e.AppendString(b, "@"+f.Name)
}

func (bl *Block) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if bl == nil {
		return e.AppendString(b, "<nil>")
	}

	return e.AppendString(b, bl.Label())
}
