package messaging

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestParseStartOffset(t *testing.T) {
	tests := []struct {
		name    string
		want    int64
		wantErr bool
	}{
		{"", kafka.FirstOffset, false},
		{"first", kafka.FirstOffset, false},
		{" LAST ", kafka.LastOffset, false},
		{"middle", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseStartOffset(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: expected error %v, got %v", tt.name, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestNewConsumerAppliesOptions(t *testing.T) {
	c := NewConsumer([]string{"localhost:9092"}, TopicOrderCreated, "group", WithStartOffset(kafka.LastOffset))
	defer func() { _ = c.Close() }()

	if got := c.reader.Config().StartOffset; got != kafka.LastOffset {
		t.Errorf("expected start offset %d, got %d", kafka.LastOffset, got)
	}
	if c.Topic() != TopicOrderCreated {
		t.Errorf("expected topic %s, got %s", TopicOrderCreated, c.Topic())
	}
}
