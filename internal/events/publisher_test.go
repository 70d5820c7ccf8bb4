package events

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherDisabledWithoutURL(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	pub, err := NewPublisher("", "liliapp-bi-service", logger)
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestNilPublisherIsANoOp(t *testing.T) {
	var pub *Publisher

	assert.NoError(t, pub.Publish("etl.orders.completed", map[string]int{"extracted": 3}))
	pub.Close()
}
