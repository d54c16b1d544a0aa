package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	generatedAt := time.Date(2024, 2, 1, 15, 10, 0, 0, time.UTC)
	category := domain.TempCategoryModerate
	row := domain.EnrichedRecord{
		MergedRecord: domain.MergedRecord{
			DateISO:      "2024-01-15",
			TotalOrders:  42,
			TemperatureC: 12.5,
			RainfallMM:   3.2,
		},
		IsRainy:      true,
		DayOfWeek:    1, // Monday
		TempCategory: &category,
	}

	msg, err := serializeToMessage(row, generatedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("2024-01-15"), msg.Key)
	assert.Contains(t, string(msg.Value), `"total_orders":42`)
	assert.Contains(t, string(msg.Value), `"is_rainy":true`)
	assert.Contains(t, string(msg.Value), `"temp_category":"moderate"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "day_of_week", msg.Headers[0].Key)
	assert.Equal(t, []byte("Monday"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(generatedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_NullsStayNull(t *testing.T) {
	row := domain.EnrichedRecord{
		MergedRecord: domain.MergedRecord{DateISO: "2024-01-16", TotalOrders: 7},
	}

	msg, err := serializeToMessage(row, time.Now())
	require.NoError(t, err)

	assert.Contains(t, string(msg.Value), `"humidity_pct":null`)
	assert.Contains(t, string(msg.Value), `"temp_category":null`)
	assert.Contains(t, string(msg.Value), `"moving_avg_7":null`)
}

func TestNewWriterConfiguresTopic(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "order-weather-enriched", nil)
	defer w.Close()

	require.IsType(t, &kafkago.Writer{}, w.writer)
	assert.Equal(t, "order-weather-enriched", w.writer.Topic)
}
