package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestKafkaPublisher_SendsJSON(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, nil)
	var got Event
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		b, err := m.Value.Encode()
		if err != nil {
			return err
		}
		return json.Unmarshal(b, &got)
	})

	p := newWithProducer(prod, "trends-results", 8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Publish(Event{Op: "get_keyword_weights", Fingerprint: "abc", Entries: 12, TS: time.Unix(0, 0).UTC()})

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got.Op != "get_keyword_weights" || got.Entries != 12 || got.Fingerprint != "abc" {
		t.Fatalf("published event=%+v", got)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(Event{Op: "x"})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestKafkaPublisher_PublishAfterCloseIsDropped(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, nil)
	p := newWithProducer(prod, "trends-results", 8, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	p.Publish(Event{Op: "get_top_keywords"})
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
