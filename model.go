package balsa

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
)

// A model file is a gob stream: one header record followed by one record
// per compact tree, appended in training completion order. The header
// carries the metadata the input stream surfaces without decoding any
// tree, plus the feature kind so a model is never loaded under the wrong
// feature type.
const (
	modelMagic   = "balsa-forest"
	modelVersion = 1
)

type modelHeader struct {
	Magic       string
	Version     int
	Classes     int
	Features    int
	FeatureKind string
}

// featureKind names the feature type of an instantiation, as stored in
// the model header.
func featureKind[F Feature]() string {
	if reflect.TypeOf(F(0)).Kind() == reflect.Float32 {
		return "float32"
	}
	return "float64"
}

// ModelKind reads only the header of a model file and returns the feature
// kind it was trained with, so callers can pick the right instantiation
// before opening the model.
func ModelKind(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	defer f.Close()
	var header modelHeader
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&header); err != nil {
		return "", fmt.Errorf("%w: reading model header: %v", ErrMalformedInput, err)
	}
	if header.Magic != modelMagic {
		return "", fmt.Errorf("%w: not a model file", ErrMalformedInput)
	}
	return header.FeatureKind, nil
}

// ModelWriter streams finalized trees to a model file. It is safe for
// concurrent writers; writes are serialized internally. Close is
// idempotent and the first call flushes and releases the file, so a
// deferred Close covers every exit path.
type ModelWriter[F Feature] struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *gob.Encoder
	header modelHeader
	closed bool
}

// CreateModel creates a model file and writes its header.
func CreateModel[F Feature](path string, classCount, featureCount int) (*ModelWriter[F], error) {
	if classCount <= 0 || featureCount <= 0 {
		return nil, fmt.Errorf("%w: model needs positive class and feature counts", ErrClient)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	w := &ModelWriter[F]{
		file:   file,
		buf:    bufio.NewWriter(file),
		header: modelHeader{Magic: modelMagic, Version: modelVersion, Classes: classCount, Features: featureCount, FeatureKind: featureKind[F]()},
	}
	w.enc = gob.NewEncoder(w.buf)
	if err := w.enc.Encode(&w.header); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: writing model header: %v", ErrSupplier, err)
	}
	return w, nil
}

// Write appends one tree to the model. Trees already written stay valid
// on disk up to the last successful Write.
func (w *ModelWriter[F]) Write(tree *TreeClassifier[F]) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrStreamClosed
	}
	if tree.ClassCount() != w.header.Classes || tree.FeatureCount() != w.header.Features {
		return fmt.Errorf("%w: tree with %d classes and %d features in a %d-class %d-feature model",
			ErrClient, tree.ClassCount(), tree.FeatureCount(), w.header.Classes, w.header.Features)
	}
	if err := w.enc.Encode(tree); err != nil {
		w.closed = true
		w.buf.Flush()
		w.file.Close()
		return fmt.Errorf("%w: writing tree: %v", ErrSupplier, err)
	}
	return nil
}

// Close flushes and releases the model file.
func (w *ModelWriter[F]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("%w: flushing model: %v", ErrSupplier, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("%w: closing model: %v", ErrSupplier, err)
	}
	return nil
}

// ModelReader is a classifier input stream over a model file. A reader
// goroutine decodes up to preload trees ahead of the consumer; Rewind
// restarts decoding from the first tree.
type ModelReader[F Feature] struct {
	file    *os.File
	dec     *gob.Decoder
	header  modelHeader
	preload int
	items   chan modelItem[F]
	quit    chan struct{}
	closed  bool
}

type modelItem[F Feature] struct {
	tree *TreeClassifier[F]
	err  error
}

// OpenModel opens a model file for streaming. preload bounds how many
// decoded trees may wait in memory ahead of the consumer; values below 1
// are treated as 1.
func OpenModel[F Feature](path string, preload int) (*ModelReader[F], error) {
	if preload < 1 {
		preload = 1
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	r := &ModelReader[F]{file: file, preload: preload}
	if err := r.restart(); err != nil {
		file.Close()
		return nil, err
	}
	if r.header.Magic != modelMagic {
		r.Close()
		return nil, fmt.Errorf("%w: not a model file", ErrMalformedInput)
	}
	if r.header.Version != modelVersion {
		r.Close()
		return nil, fmt.Errorf("%w: unsupported model version %d", ErrMalformedInput, r.header.Version)
	}
	if kind := featureKind[F](); r.header.FeatureKind != kind {
		r.Close()
		return nil, fmt.Errorf("%w: model stores %s trees, reader expects %s", ErrMalformedInput, r.header.FeatureKind, kind)
	}
	if r.header.Classes <= 0 || r.header.Features <= 0 {
		r.Close()
		return nil, fmt.Errorf("%w: model declares %d classes and %d features", ErrMalformedInput, r.header.Classes, r.header.Features)
	}
	return r, nil
}

// ClassCount returns the number of classes declared by the model header.
func (r *ModelReader[F]) ClassCount() int { return r.header.Classes }

// FeatureCount returns the number of features declared by the model
// header.
func (r *ModelReader[F]) FeatureCount() int { return r.header.Features }

// Next returns the next tree of the model, or nil after the last one.
func (r *ModelReader[F]) Next() (Classifier[F], error) {
	if r.closed {
		return nil, ErrStreamClosed
	}
	item, ok := <-r.items
	if !ok {
		return nil, nil
	}
	if item.err != nil {
		return nil, item.err
	}
	return item.tree, nil
}

// Rewind restarts iteration at the first tree of the model.
func (r *ModelReader[F]) Rewind() error {
	if r.closed {
		return ErrStreamClosed
	}
	r.stopPrefetch()
	return r.restart()
}

// Close stops the prefetcher and releases the file. Close is idempotent.
func (r *ModelReader[F]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.stopPrefetch()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("%w: closing model: %v", ErrSupplier, err)
	}
	return nil
}

// restart rewinds the underlying file, re-reads the header and starts a
// fresh prefetcher.
func (r *ModelReader[F]) restart() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewinding model: %v", ErrSupplier, err)
	}
	r.dec = gob.NewDecoder(bufio.NewReader(r.file))
	r.header = modelHeader{}
	if err := r.dec.Decode(&r.header); err != nil {
		return fmt.Errorf("%w: reading model header: %v", ErrMalformedInput, err)
	}
	r.startPrefetch()
	return nil
}

func (r *ModelReader[F]) startPrefetch() {
	items := make(chan modelItem[F], r.preload)
	quit := make(chan struct{})
	r.items = items
	r.quit = quit
	dec := r.dec
	header := r.header
	go func() {
		defer close(items)
		for {
			tree := new(TreeClassifier[F])
			if err := dec.Decode(tree); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				sendItem(items, quit, modelItem[F]{err: fmt.Errorf("%w: reading tree: %v", ErrMalformedInput, err)})
				return
			}
			if err := tree.Validate(); err != nil {
				sendItem(items, quit, modelItem[F]{err: err})
				return
			}
			if tree.ClassCount() != header.Classes || tree.FeatureCount() != header.Features {
				sendItem(items, quit, modelItem[F]{err: fmt.Errorf("%w: tree disagrees with model header", ErrMalformedInput)})
				return
			}
			if !sendItem(items, quit, modelItem[F]{tree: tree}) {
				return
			}
		}
	}()
}

func (r *ModelReader[F]) stopPrefetch() {
	if r.quit == nil {
		return
	}
	close(r.quit)
	for range r.items {
	}
	r.quit = nil
	r.items = nil
}

func sendItem[F Feature](items chan modelItem[F], quit chan struct{}, item modelItem[F]) bool {
	select {
	case items <- item:
		return true
	case <-quit:
		return false
	}
}
