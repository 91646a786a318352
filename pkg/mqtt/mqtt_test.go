package mqtt

import (
	"errors"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"music/queue", "music/queue", true},
		{"music/queue", "music/guilds", false},
		{"music/+", "music/queue", true},
		{"music/+", "music/queue/extra", false},
		{"music/#", "music/a/b/c", true},
		{"music/#", "music", true},
		{"music/+/skip", "music/123/skip", true},
		{"music/+/skip", "music/123/stop", false},
	}
	for _, tt := range tests {
		if got := topicMatch(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("topicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

type published struct {
	topic string
	data  []byte
}

func newTestCommunicator() (*MqttCommunicator, *[]published, *sync.Mutex) {
	mc := newCommunicator("test")
	var mu sync.Mutex
	out := &[]published{}
	mc.publish = func(topic string, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		*out = append(*out, published{topic, data})
		return nil
	}
	return mc, out, &mu
}

func TestHandleRequest(t *testing.T) {
	mc, out, mu := newTestCommunicator()
	mc.On("music/queue", func(topic string, payload json.RawMessage) (any, error) {
		var req struct {
			GuildID string `json:"guildId"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		return map[string]string{"guild": req.GuildID}, nil
	})
	mc.On("music/fail", func(topic string, payload json.RawMessage) (any, error) {
		return nil, errors.New("nope")
	})

	mc.handleRequest("pancy/request/music/queue", []byte(`{"correlationId":"c1","payload":{"guildId":"g1"}}`))
	mc.handleRequest("pancy/request/music/fail", []byte(`{"correlationId":"c2"}`))
	mc.handleRequest("pancy/request/other", []byte(`{"correlationId":"c3"}`))

	mu.Lock()
	defer mu.Unlock()
	if len(*out) != 2 {
		t.Fatalf("published %d responses, want 2", len(*out))
	}

	first := (*out)[0]
	if first.topic != "pancy/response/music/queue/c1" {
		t.Errorf("topic = %v, want %v", first.topic, "pancy/response/music/queue/c1")
	}
	var resp MqttResponse
	json.Unmarshal(first.data, &resp)
	data, _ := resp.Data.(map[string]any)
	if resp.CorrelationID != "c1" || data["guild"] != "g1" {
		t.Errorf("response = %+v", resp)
	}

	var failed MqttResponse
	json.Unmarshal((*out)[1].data, &failed)
	if failed.Error != "nope" {
		t.Errorf("error = %v, want %v", failed.Error, "nope")
	}
}

func TestDeliverResponse(t *testing.T) {
	mc, _, _ := newTestCommunicator()
	ch := make(chan MqttResponse, 1)
	mc.waiting["c1"] = ch

	mc.deliverResponse([]byte(`{"correlationId":"c1","data":42}`))
	mc.deliverResponse([]byte(`{"correlationId":"unknown","data":1}`))

	select {
	case resp := <-ch:
		if resp.Data != float64(42) {
			t.Errorf("Data = %v, want %v", resp.Data, 42)
		}
	default:
		t.Fatal("response not delivered")
	}
}

func TestPublishWithoutClient(t *testing.T) {
	mc := newCommunicator("test")
	if err := mc.Publish("music/queue", map[string]string{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Publish() error = %v, want %v", err, ErrNotInitialized)
	}
	if err := mc.Subscribe("music/queue", func(string, []byte) {}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Subscribe() error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestResponseTopic(t *testing.T) {
	if got, want := responseTopic("music/queue", "c1"), "pancy/response/music/queue/c1"; got != want {
		t.Errorf("responseTopic() = %q, want %q", got, want)
	}
}
