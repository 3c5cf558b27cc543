package ml_service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/jitter"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	fieldVector       = "vector"
	fieldModelVersion = "model_version"
)

var errMalformedResponse = errors.New("malformed vectorize response")

// MLService клиент для взаимодействия с внешним ML-сервисом.
// Запрос — BytesValue с JPEG, ответ — Struct {vector: [...], model_version: "..."}.
type MLService struct {
	conn          grpc.ClientConnInterface
	method        string
	modelVersion  string // используется, если сервис не вернул версию
	maxConcurrent int
	maxRetries    int
	timeout       time.Duration
	backoff       jitter.Strategy
	logger        logger.Logger
}

func NewMLService(conn grpc.ClientConnInterface, cfg *cfg.MLServiceCfg, logger logger.Logger) *MLService {
	return &MLService{
		conn:          conn,
		method:        cfg.Method,
		modelVersion:  cfg.ModelVersion,
		maxConcurrent: max(cfg.MaxConcurrent, 1),
		maxRetries:    max(cfg.MaxRetries, 1),
		timeout:       cfg.Timeout,
		backoff:       jitter.Exponential(time.Second, 30*time.Second, jitter.DefaultJitter),
		logger:        logger,
	}
}

// Embed векторизует одно каноническое изображение.
func (m *MLService) Embed(ctx context.Context, canonical []byte) (*usecase.VectorizeRes, error) {
	const op = "MLService.Embed"

	var res *usecase.VectorizeRes
	err := m.retry(ctx, func(ctx context.Context) error {
		var err error
		res, err = m.vectorizeOne(ctx, canonical)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// VectorizeRequest выполняет векторизацию батча с retry-логикой и экспоненциальной задержкой.
// Результаты идут в порядке req.Images.
func (m *MLService) VectorizeRequest(ctx context.Context, req *usecase.VectorizeReq) ([]usecase.VectorizeRes, error) {
	const op = "MLService.VectorizeRequest"

	var vectors []usecase.VectorizeRes
	err := m.retry(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = m.vectorizeBatch(ctx, req)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vectors, nil
}

func (m *MLService) retry(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		if attempt == m.maxRetries-1 {
			break
		}

		sleepTime := m.backoff(attempt)
		m.logger.Warnf("vectorization failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, lastErr)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", m.maxRetries, lastErr)
}

// retryable: повторяем только временные отказы транспорта.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// vectorizeBatch отправляет батч изображений на векторизацию параллельно с ограничением конкурентности
func (m *MLService) vectorizeBatch(ctx context.Context, req *usecase.VectorizeReq) ([]usecase.VectorizeRes, error) {
	const op = "MLService.vectorizeBatch"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([]usecase.VectorizeRes, len(req.Images))
	sem := make(chan struct{}, m.maxConcurrent)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, image := range req.Images {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			res, err := m.vectorizeOne(ctx, image)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}

			vectors[i] = *res
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, e.Wrap(op, firstErr)
	}

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	return vectors, nil
}

func (m *MLService) vectorizeOne(ctx context.Context, image []byte) (*usecase.VectorizeRes, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	reply := &structpb.Struct{}
	if err := m.conn.Invoke(ctx, m.method, wrapperspb.Bytes(image), reply); err != nil {
		return nil, err
	}

	return m.decode(reply)
}

func (m *MLService) decode(reply *structpb.Struct) (*usecase.VectorizeRes, error) {
	list := reply.GetFields()[fieldVector].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, e.ErrEmptyVectors
	}

	vector := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: vector[%d] is not a number", errMalformedResponse, i)
		}
		vector[i] = float32(num.NumberValue)
	}

	modelVersion := reply.GetFields()[fieldModelVersion].GetStringValue()
	if modelVersion == "" {
		modelVersion = m.modelVersion
	}

	return usecase.NewVectorizeRes(vector, modelVersion), nil
}
