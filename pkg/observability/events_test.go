package observability

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmitter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	emitter := NewLogEmitter(logger)

	emitter.Emit(Event{Level: logrus.InfoLevel, Message: EventMatchFound, Fields: logrus.Fields{"incident_id": "inc-0001"}})
	emitter.Emit(Event{Level: logrus.WarnLevel, Message: EventStepSkipped})
	emitter.Emit(Event{Level: logrus.DebugLevel, Message: EventPlanStep})
	emitter.Emit(Event{Level: logrus.ErrorLevel, Message: "boom"})

	entries := hook.AllEntries()
	require.Len(t, entries, 4)

	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, EventMatchFound, entries[0].Message)
	assert.Equal(t, "inc-0001", entries[0].Data["incident_id"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.DebugLevel, entries[2].Level)
	assert.Equal(t, logrus.ErrorLevel, entries[3].Level)
}

func TestRecorderConcurrent(t *testing.T) {
	rec := &Recorder{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Emit(Event{Message: EventPlanStep})
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Events(), 50)
}

func TestMultiAndDiscard(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}

	Multi{a, Discard, b}.Emit(Event{Message: EventValidationVerdict})

	assert.Equal(t, []string{EventValidationVerdict}, a.Messages())
	assert.Equal(t, []string{EventValidationVerdict}, b.Messages())
}
