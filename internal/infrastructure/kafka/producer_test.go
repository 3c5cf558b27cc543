package kafka

import (
	"testing"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEncodeCatalogChanged(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	event := usecase.NewCatalogChangedEvent("seed", &usecase.IngestReport{Total: 5, Succeeded: 4, Failed: 1})

	data, err := EncodeCatalogChanged(event, at)
	require.NoError(t, err)

	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &decoded))

	fields := decoded.GetFields()
	assert.Equal(t, "seed", fields["operation"].GetStringValue())
	assert.Equal(t, 4.0, fields["succeeded"].GetNumberValue())
	assert.Equal(t, 1.0, fields["failed"].GetNumberValue())
	assert.Equal(t, float64(at.UnixMilli()), fields["event_timestamp"].GetNumberValue())

	_, err = uuid.Parse(fields["event_id"].GetStringValue())
	assert.NoError(t, err)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(logger.NewNop(), &cfg.KafkaCfg{Topic: "catalog.changed"})
	assert.ErrorIs(t, err, errNoBrokers)
}
