package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestStartStoreSpan_ReturnsSpan(t *testing.T) {
	ctx, span := StartStoreSpan(context.Background(), "find", "posts")
	if ctx == nil {
		t.Fatal("expected context")
	}
	if span == nil {
		t.Fatal("expected span")
	}
	span.End()
}

func TestRecordError_NilErrorIsNoop(t *testing.T) {
	_, span := StartStoreSpan(context.Background(), "insert", "posts")
	defer span.End()

	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	RecordSuccess(span)
}
