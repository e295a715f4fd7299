package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
)

type fakeBackend struct {
	name  string
	text  string
	conf  float32
	err   error
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Recognize(_ context.Context, _ []byte) (string, float32, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, f.conf, nil
}

func pngDoc() entity.Document {
	return entity.Document{ID: uuid.New(), MediaType: "image/png", Bytes: []byte{0x89, 'P', 'N', 'G'}}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewExtractor(Config{}, nil, nil)
	doc := entity.Document{ID: uuid.New(), MediaType: "text/plain", Bytes: []byte("hi")}

	_, err := e.Extract(context.Background(), doc)
	require.Error(t, err)
	assert.Equal(t, constants.ReasonUnsupportedFormat, common.FailureReason(err))
}

func TestExtractFirstBackendWins(t *testing.T) {
	primary := &fakeBackend{name: "primary", text: "INVOICE #42", conf: 0.92}
	fallback := &fakeBackend{name: "fallback", text: "unused", conf: 0.99}
	e := NewExtractor(Config{}, []Backend{primary, fallback}, nil)

	res, err := e.Extract(context.Background(), pngDoc())
	require.NoError(t, err)
	assert.Equal(t, "primary", res.EngineID)
	assert.Equal(t, "INVOICE #42", res.Text)
	assert.False(t, res.LowConfidence)
	assert.Zero(t, fallback.calls, "fallback should not run when primary clears the floor")
}

func TestExtractFallsThroughOnLowConfidence(t *testing.T) {
	weak := &fakeBackend{name: "weak", text: "garbled", conf: 0.2}
	strong := &fakeBackend{name: "strong", text: "INVOICE #7", conf: 0.85}
	e := NewExtractor(Config{ConfidenceFloor: 0.4}, []Backend{weak, strong}, nil)

	res, err := e.Extract(context.Background(), pngDoc())
	require.NoError(t, err)
	assert.Equal(t, "strong", res.EngineID)
	assert.False(t, res.LowConfidence)
}

func TestExtractFallsThroughOnError(t *testing.T) {
	broken := &fakeBackend{name: "broken", err: errors.New("engine crashed")}
	ok := &fakeBackend{name: "ok", text: "TOTAL $10.00", conf: 0.9}
	e := NewExtractor(Config{Attempts: 2}, []Backend{broken, ok}, nil)

	res, err := e.Extract(context.Background(), pngDoc())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.EngineID)
	assert.Equal(t, 2, broken.calls, "failing backend retried before falling through")
}

func TestExtractBestBelowFloorFlagged(t *testing.T) {
	a := &fakeBackend{name: "a", text: "blur", conf: 0.15}
	b := &fakeBackend{name: "b", text: "less blur", conf: 0.3}
	e := NewExtractor(Config{ConfidenceFloor: 0.4}, []Backend{a, b}, nil)

	res, err := e.Extract(context.Background(), pngDoc())
	require.NoError(t, err)
	assert.True(t, res.LowConfidence)
	assert.Equal(t, "b", res.EngineID)
	assert.InDelta(t, 0.3, res.Confidence, 1e-6)
}

func TestExtractAllEmptyIsFailure(t *testing.T) {
	empty := &fakeBackend{name: "empty", text: "   ", conf: 0.9}
	broken := &fakeBackend{name: "broken", err: errors.New("nope")}
	e := NewExtractor(Config{Attempts: 1}, []Backend{empty, broken}, nil)

	_, err := e.Extract(context.Background(), pngDoc())
	require.Error(t, err)
	assert.Equal(t, constants.ReasonExtractionFailure, common.FailureReason(err))
}
