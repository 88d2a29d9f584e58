package svm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const header = "linear-svm v1"

// WriteTo serializes the model as a short text header followed by the
// binary encoding of the weight vector.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	hdr := fmt.Sprintf("%s\ndim %d\nbias %s\nc %s\n",
		header, m.Dim(),
		strconv.FormatFloat(m.bias, 'g', -1, 64),
		strconv.FormatFloat(m.c, 'g', -1, 64),
	)
	n, err := io.WriteString(w, hdr)
	if err != nil {
		return int64(n), err
	}
	k, err := m.weights.MarshalBinaryTo(w)
	return int64(n + k), err
}

// Save writes the model to the file at path, replacing any existing content.
func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to create model file")
	}
	bw := bufio.NewWriter(f)
	if _, err := m.WriteTo(bw); err != nil {
		f.Close()
		return errors.Wrapf(err, "unable to write model %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "unable to write model %s", path)
	}
	return f.Close()
}

// Read decodes a model previously written with WriteTo.
func Read(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)

	line, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != header {
		return nil, errors.New("invalid model header")
	}

	var (
		dim     int
		bias, c float64
	)
	fields := []struct {
		key   string
		parse func(string) error
	}{
		{"dim", func(v string) (err error) { dim, err = strconv.Atoi(v); return }},
		{"bias", func(v string) (err error) { bias, err = strconv.ParseFloat(v, 64); return }},
		{"c", func(v string) (err error) { c, err = strconv.ParseFloat(v, 64); return }},
	}
	for _, f := range fields {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", f.key)
		}
		key, val, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok || key != f.key {
			return nil, errors.Errorf("expected %q, got %q", f.key, strings.TrimSpace(line))
		}
		if err := f.parse(val); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", f.key)
		}
	}

	var w mat.VecDense
	if _, err := w.UnmarshalBinaryFrom(br); err != nil {
		return nil, errors.Wrap(err, "reading weights")
	}
	if w.Len() != dim {
		return nil, errors.Wrapf(ErrDimension, "header says %d, weights have %d", dim, w.Len())
	}
	return &Model{weights: &w, bias: bias, c: c}, nil
}

// Load reads the model stored at path.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open model file")
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load model %s", path)
	}
	return m, nil
}
