package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tldetector/entity"
)

func TestPublisherFanOut(t *testing.T) {
	p := NewPublisher()
	id1, ch1 := p.subscribe()
	id2, ch2 := p.subscribe()
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, p.Subscribers())

	w := entity.StopWaypoint{Index: 7, State: entity.LightStateRed}
	p.Publish(w)
	assert.Equal(t, w, <-ch1)
	assert.Equal(t, w, <-ch2)
	assert.Equal(t, uint64(1), p.Published())
}

func TestPublisherKeepsLatest(t *testing.T) {
	p := NewPublisher()
	_, ch := p.subscribe()

	p.Publish(entity.StopWaypoint{Index: 1, State: entity.LightStateRed})
	p.Publish(entity.StopWaypoint{Index: 2, State: entity.LightStateGreen})
	p.Publish(entity.StopWaypoint{Index: 3, State: entity.LightStateYellow})

	assert.Equal(t, entity.StopWaypoint{Index: 3, State: entity.LightStateYellow}, <-ch)
	select {
	case w := <-ch:
		t.Fatalf("unexpected event %v", w)
	default:
	}
	assert.Equal(t, uint64(2), p.Dropped())
	assert.Equal(t, uint64(3), p.Published())
}

func TestPublisherUnsubscribe(t *testing.T) {
	p := NewPublisher()
	id, _ := p.subscribe()
	p.unsubscribe(id)
	p.unsubscribe(id)
	assert.Equal(t, 0, p.Subscribers())

	// 没有订阅者时发布不阻塞
	p.Publish(entity.StopWaypoint{Index: 1})
	assert.Equal(t, uint64(1), p.Published())
}
