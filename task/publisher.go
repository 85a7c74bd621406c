package task

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/tldetector/entity"
)

var _ entity.IPublisher = (*Publisher)(nil)

// subscriber 停车点事件订阅者
type subscriber struct {
	id string
	ch chan entity.StopWaypoint
}

// Publisher 停车点事件发布器
// 功能：将去抖后的停车点事件扇出给所有订阅者
// 说明：每个订阅者只缓存1个事件，消费过慢时丢弃旧事件保留最新事件
type Publisher struct {
	mu      sync.Mutex
	clients map[string]*subscriber

	published atomic.Uint64 // 累计发布次数
	dropped   atomic.Uint64 // 因订阅者过慢被丢弃的事件数
}

func NewPublisher() *Publisher {
	return &Publisher{
		clients: make(map[string]*subscriber),
	}
}

// Publish 发布停车点事件
// 功能：非阻塞地投递给所有订阅者，缓冲已满时先取出旧事件再投递
func (p *Publisher) Publish(w entity.StopWaypoint) {
	p.published.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		select {
		case c.ch <- w:
			continue
		default:
		}
		select {
		case <-c.ch:
			p.dropped.Add(1)
		default:
		}
		select {
		case c.ch <- w:
		default:
			p.dropped.Add(1)
		}
	}
}

// subscribe 注册订阅者
// 返回：订阅者ID与事件通道
func (p *Publisher) subscribe() (string, <-chan entity.StopWaypoint) {
	c := &subscriber{
		id: uuid.NewString(),
		ch: make(chan entity.StopWaypoint, 1),
	}
	p.mu.Lock()
	p.clients[c.id] = c
	n := len(p.clients)
	p.mu.Unlock()
	log.Infof("subscriber connected: %s (total: %d)", c.id, n)
	return c.id, c.ch
}

// unsubscribe 注销订阅者
func (p *Publisher) unsubscribe(id string) {
	p.mu.Lock()
	_, ok := p.clients[id]
	delete(p.clients, id)
	n := len(p.clients)
	p.mu.Unlock()
	if ok {
		log.Infof("subscriber disconnected: %s (remaining: %d)", id, n)
	}
}

// Subscribers 当前订阅者数量
func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}
