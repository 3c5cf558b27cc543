package ml_service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/jitter"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const testMethod = "/ml.MachineLearningService/VectorizeImage"

// fakeConn отвечает вектором, первая компонента которого — первый байт изображения.
type fakeConn struct {
	mu       sync.Mutex
	methods  []string
	calls    atomic.Int32
	failures int32 // сколько первых вызовов вернуть с ошибкой
	failErr  error
	reply    func(image []byte) *structpb.Struct
}

func (f *fakeConn) Invoke(_ context.Context, method string, args any, reply any, _ ...grpc.CallOption) error {
	n := f.calls.Add(1)

	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()

	if n <= f.failures {
		return f.failErr
	}

	image := args.(*wrapperspb.BytesValue).GetValue()
	proto.Merge(reply.(proto.Message), f.reply(image))
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not implemented")
}

func vectorReply(version string) func([]byte) *structpb.Struct {
	return func(image []byte) *structpb.Struct {
		fields := map[string]any{"vector": []any{float64(image[0]), 0.5}}
		if version != "" {
			fields["model_version"] = version
		}
		s, _ := structpb.NewStruct(fields)
		return s
	}
}

func newService(conn *fakeConn, retries int) *MLService {
	svc := NewMLService(conn, &cfg.MLServiceCfg{
		Method:        testMethod,
		ModelVersion:  "fallback",
		MaxConcurrent: 2,
		MaxRetries:    retries,
		Timeout:       time.Second,
	}, logger.NewNop())
	svc.backoff = jitter.Fixed(time.Millisecond, 0)
	return svc
}

func TestEmbed_DecodesVector(t *testing.T) {
	conn := &fakeConn{reply: vectorReply("mobilenet_v2")}

	res, err := newService(conn, 3).Embed(context.Background(), []byte{7})
	require.NoError(t, err)

	assert.Equal(t, []float32{7, 0.5}, []float32(res.Vector))
	assert.Equal(t, "mobilenet_v2", res.ModelVersion)
	assert.Equal(t, []string{testMethod}, conn.methods)
}

func TestEmbed_FallbackModelVersion(t *testing.T) {
	conn := &fakeConn{reply: vectorReply("")}

	res, err := newService(conn, 1).Embed(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.ModelVersion)
}

func TestEmbed_RetriesTransientErrors(t *testing.T) {
	conn := &fakeConn{
		reply:    vectorReply("v"),
		failures: 2,
		failErr:  status.Error(codes.Unavailable, "connection refused"),
	}

	_, err := newService(conn, 3).Embed(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, int32(3), conn.calls.Load())
}

func TestEmbed_GivesUpAfterMaxRetries(t *testing.T) {
	conn := &fakeConn{
		reply:    vectorReply("v"),
		failures: 10,
		failErr:  status.Error(codes.Unavailable, "down"),
	}

	_, err := newService(conn, 3).Embed(context.Background(), []byte{1})

	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(errors.Unwrap(err))))
	assert.Equal(t, int32(3), conn.calls.Load())
}

func TestEmbed_DoesNotRetryPermanentErrors(t *testing.T) {
	conn := &fakeConn{
		reply:    vectorReply("v"),
		failures: 10,
		failErr:  status.Error(codes.InvalidArgument, "bad image"),
	}

	_, err := newService(conn, 3).Embed(context.Background(), []byte{1})

	require.Error(t, err)
	assert.Equal(t, int32(1), conn.calls.Load())
}

func TestEmbed_EmptyVector(t *testing.T) {
	conn := &fakeConn{reply: func([]byte) *structpb.Struct {
		s, _ := structpb.NewStruct(map[string]any{"vector": []any{}})
		return s
	}}

	_, err := newService(conn, 3).Embed(context.Background(), []byte{1})
	assert.ErrorIs(t, err, e.ErrEmptyVectors)
}

func TestEmbed_NonNumericComponent(t *testing.T) {
	conn := &fakeConn{reply: func([]byte) *structpb.Struct {
		s, _ := structpb.NewStruct(map[string]any{"vector": []any{"x"}})
		return s
	}}

	_, err := newService(conn, 1).Embed(context.Background(), []byte{1})
	assert.ErrorIs(t, err, errMalformedResponse)
}

func TestVectorizeRequest_KeepsInputOrder(t *testing.T) {
	conn := &fakeConn{reply: vectorReply("v")}
	images := [][]byte{{1}, {2}, {3}, {4}, {5}}

	res, err := newService(conn, 1).VectorizeRequest(context.Background(), usecase.NewVectorizeReq(images))
	require.NoError(t, err)

	require.Len(t, res, len(images))
	for i, r := range res {
		assert.Equal(t, float32(images[i][0]), r.Vector[0])
	}
}

func TestVectorizeRequest_FailureFailsBatch(t *testing.T) {
	conn := &fakeConn{reply: func(image []byte) *structpb.Struct {
		if bytes.Equal(image, []byte{3}) {
			s, _ := structpb.NewStruct(map[string]any{})
			return s
		}
		return vectorReply("v")(image)
	}}

	_, err := newService(conn, 1).VectorizeRequest(context.Background(), usecase.NewVectorizeReq([][]byte{{1}, {2}, {3}}))
	assert.ErrorIs(t, err, e.ErrEmptyVectors)
}
