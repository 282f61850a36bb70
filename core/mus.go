package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the domain types. The schema is small and
// stable (four field groups), so the serializers are maintained directly
// instead of generated. Field order is part of the on-disk format and must
// not change.

var (
	// IDMUS serializes an ID as a varint-encoded uint64.
	IDMUS = idMUS{}

	// PassageMUS serializes a Passage.
	PassageMUS = passageMUS{}

	// VectorMUS serializes an embedding vector.
	VectorMUS = ord.NewSliceSer[float32](varint.Float32)
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) (size int) {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type passageMUS struct{}

func (passageMUS) Marshal(p Passage, bs []byte) (n int) {
	n = IDMUS.Marshal(p.Id, bs)
	n += ord.String.Marshal(p.Text, bs[n:])
	n += ord.String.Marshal(p.Source, bs[n:])
	n += varint.Int.Marshal(p.Row, bs[n:])
	n += varint.Int64.Marshal(p.InsertedAt.UnixMicro(), bs[n:])
	return n
}

func (passageMUS) Unmarshal(bs []byte) (p Passage, n int, err error) {
	var n1 int
	p.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	p.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	p.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	p.Row, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	p.InsertedAt = time.UnixMicro(micros).UTC()
	return
}

func (passageMUS) Size(p Passage) (size int) {
	size = IDMUS.Size(p.Id)
	size += ord.String.Size(p.Text)
	size += ord.String.Size(p.Source)
	size += varint.Int.Size(p.Row)
	size += varint.Int64.Size(p.InsertedAt.UnixMicro())
	return size
}

func (passageMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}
