package json

import (
	"encoding/json"
	"io"

	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// Source decodes a stream of JSON documents from a reader. Numbers are
// decoded as json.Number so that they pass through unchanged. A document which
// is an array yields each of its objects in turn; scalars and nulls, at the top
// level or inside such an array, are skipped.
type Source struct {
	dec     *json.Decoder
	pending []map[string]interface{}
	skipped int
}

// NewSource gets a new Source reading from r.
func NewSource(r io.Reader) *Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Source{
		dec: dec,
	}
}

// Record returns the next JSON object in the stream as a
// map[string]interface{}, or io.EOF when the stream is exhausted.
func (s *Source) Record() (rec map[string]interface{}, err error) {
	for len(s.pending) == 0 {
		var doc interface{}
		if err := s.dec.Decode(&doc); err != nil {
			return nil, err
		}
		switch dt := doc.(type) {
		case map[string]interface{}:
			return dt, nil
		case []interface{}:
			for _, elem := range dt {
				if obj, ok := elem.(map[string]interface{}); ok {
					s.pending = append(s.pending, obj)
				} else {
					s.skipped++
				}
			}
		default:
			s.skipped++
		}
	}
	rec, s.pending = s.pending[0], s.pending[1:]
	return rec, nil
}

// Skipped returns the number of values which were not objects.
func (s *Source) Skipped() int {
	return s.skipped
}

// RawSourceSource decodes the JSON objects from each reader of a
// datalake.RawSource in turn.
type RawSourceSource struct {
	rs datalake.RawSource

	cur     datalake.NamedReadCloser
	s       *Source
	n       int
	skipped int
}

// NewSourceFromRawSource wraps rs so that Record returns the JSON objects of
// every reader it yields.
func NewSourceFromRawSource(rs datalake.RawSource) *RawSourceSource {
	return &RawSourceSource{rs: rs}
}

// Record returns the next JSON object, moving on to the next reader as each
// is exhausted. It returns io.EOF after the last reader.
func (r *RawSourceSource) Record() (rec map[string]interface{}, err error) {
	for {
		if r.s == nil {
			reader, err := r.rs.NextReader()
			if err == io.EOF {
				return nil, err
			} else if err != nil {
				return nil, errors.Wrap(err, "getting next reader")
			}
			r.cur, r.s, r.n = reader, NewSource(reader), 0
		}
		rec, err = r.s.Record()
		if err == io.EOF {
			r.skipped += r.s.Skipped()
			if cerr := r.cur.Close(); cerr != nil {
				return nil, errors.Wrapf(cerr, "closing %s", r.cur.Name())
			}
			r.cur, r.s = nil, nil
			continue
		} else if err != nil {
			name := r.cur.Name()
			r.cur.Close()
			r.cur, r.s = nil, nil
			return nil, errors.Wrapf(err, "decoding json object %d from %s", r.n, name)
		}
		r.n++
		return rec, nil
	}
}

// Name returns the name of the reader the last record came from.
func (r *RawSourceSource) Name() string {
	if r.cur == nil {
		return ""
	}
	return r.cur.Name()
}

// Skipped returns the number of non-object values skipped in the readers
// which have been read to the end.
func (r *RawSourceSource) Skipped() int {
	return r.skipped
}
