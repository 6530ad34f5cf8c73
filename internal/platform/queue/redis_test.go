package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/ymlint/internal/domain"
)

func TestJobStreamEntry(t *testing.T) {
	job := domain.Job{
		ID:         "job-1",
		Filename:   ".travis.yml",
		YML:        "language: go\n",
		Deliveries: 1,
		RawID:      "ignored",
	}

	values, err := encodeJob(job)
	require.NoError(t, err)

	got, err := decodeJob(redis.XMessage{ID: "1700000000000-0", Values: values})
	require.NoError(t, err)

	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, ".travis.yml", got.Filename)
	assert.Equal(t, "language: go\n", got.YML)
	assert.EqualValues(t, 1, got.Deliveries)
	assert.Equal(t, "1700000000000-0", got.RawID)
}

func TestDecodeJobRejectsMalformedEntries(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"missing field": {"other": "x"},
		"wrong type":    {jobField: 42},
		"bad json":      {jobField: "{"},
		"no id":         {jobField: `{"yml":"a: b"}`},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := decodeJob(redis.XMessage{ID: "1-0", Values: values})
			assert.Error(t, err)
		})
	}
}

func TestConsumerNameIncludesPID(t *testing.T) {
	assert.Regexp(t, `-\d+$`, consumerName())
}

func TestRequeueAllowedOnceByDefault(t *testing.T) {
	const maxDeliveries = 2

	// First sweep: delivered once to a worker, once more to the claim.
	first := int64(2)
	assert.True(t, requeueAllowed(first, maxDeliveries))

	// The requeued copy carries that count and goes stale the same way.
	second := first + 2
	assert.False(t, requeueAllowed(second, maxDeliveries))
}
