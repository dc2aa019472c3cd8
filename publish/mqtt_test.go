package publish

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jrwynneiii/rxtuner/config"
)

type doneToken struct{ err error }

func (t *doneToken) Wait() bool { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *doneToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	messages     []published
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, payload.([]byte)})
	return &doneToken{}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestRenderPublishes(t *testing.T) {
	c := &fakeClient{connected: true}
	p := newMQTT(c, "ais/decodes", 1, "B")
	p.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

	p.Render("!AIVDM,1,1,,B,1111,0*25")

	if len(c.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(c.messages))
	}
	msg := c.messages[0]
	if msg.topic != "ais/decodes" || msg.qos != 1 {
		t.Errorf("unexpected topic/qos %s/%d", msg.topic, msg.qos)
	}
	var body SentenceMessage
	if err := json.Unmarshal(msg.payload, &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body.Sentence != "!AIVDM,1,1,,B,1111,0*25" || body.Channel != "B" {
		t.Errorf("unexpected body %+v", body)
	}
	if !body.Timestamp.Equal(p.now()) {
		t.Errorf("unexpected timestamp %v", body.Timestamp)
	}

	p.Close()
	if !c.disconnected {
		t.Error("Close() did not disconnect")
	}
}

func TestRenderDisconnectedDrops(t *testing.T) {
	c := &fakeClient{}
	newMQTT(c, "ais", 0, "A").Render("x")
	if len(c.messages) != 0 {
		t.Error("nothing should be published while disconnected")
	}
}

func TestDisabled(t *testing.T) {
	p, err := NewMQTT(config.MQTTConf{Enabled: false}, "B")
	if p != nil || err != nil {
		t.Errorf("disabled publisher should be nil, got %v / %v", p, err)
	}
}
