package events

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/nsqio/go-nsq"
)

// Publisher публикует доменные события в шину.
// Публикация fire-and-forget: вызывающая сторона логирует ошибку и продолжает.
type Publisher interface {
	Publish(topic string, event any) error
}

// NSQPublisher реализует Publisher поверх nsqd
type NSQPublisher struct {
	producer *nsq.Producer
}

// NewNSQPublisher подключает продюсера к nsqd по адресу host:port
func NewNSQPublisher(nsqdAddr string) (*NSQPublisher, error) {
	cfg := nsq.NewConfig()
	producer, err := nsq.NewProducer(nsqdAddr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create nsq producer: %w", err)
	}
	producer.SetLogger(log.New(os.Stdout, "nsq producer: ", 0), nsq.LogLevelError)

	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("failed to ping nsqd: %w", err)
	}

	return &NSQPublisher{producer: producer}, nil
}

// Publish сериализует событие в JSON и публикует в топик
func (p *NSQPublisher) Publish(topic string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.producer.Publish(topic, body); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Stop останавливает продюсера, дожидаясь отправки буферизованных сообщений
func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}
