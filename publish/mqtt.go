// Package publish forwards decoded sentences to an MQTT broker.
package publish

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jrwynneiii/rxtuner/config"
)

const publishTimeout = 5 * time.Second

type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// SentenceMessage is the JSON body published for every decoded sentence.
type SentenceMessage struct {
	Sentence  string    `json:"sentence"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTT is a packet display sink that publishes each decoded sentence.
type MQTT struct {
	client  client
	topic   string
	qos     byte
	channel string
	now     func() time.Time
}

func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "rxtuner_" + hex.EncodeToString(bytes)
}

// NewMQTT connects to the broker. It returns nil when publishing is disabled.
func NewMQTT(conf config.MQTTConf, channel string) (*MQTT, error) {
	if !conf.Enabled {
		return nil, nil
	}

	scheme := "tcp"
	if conf.UseTLS {
		scheme = "tls"
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, conf.Host, conf.Port))
	opts.SetClientID(generateClientID())
	if conf.Username != "" {
		opts.SetUsername(conf.Username)
	}
	if conf.Password != "" {
		opts.SetPassword(conf.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Infof("Connected to MQTT broker %s:%d", conf.Host, conf.Port)
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(publishTimeout) {
		// ConnectRetry keeps trying in the background
		log.Warnf("MQTT broker %s:%d not reachable yet, retrying", conf.Host, conf.Port)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return newMQTT(c, conf.Topic, byte(conf.QoS), channel), nil
}

func newMQTT(c client, topic string, qos byte, channel string) *MQTT {
	return &MQTT{client: c, topic: topic, qos: qos, channel: channel, now: time.Now}
}

// Render publishes text. It never blocks on the broker; failures are logged.
func (p *MQTT) Render(text string) {
	if !p.client.IsConnected() {
		log.Debugf("[mqtt] Not connected, dropping %s", text)
		return
	}
	payload, err := json.Marshal(SentenceMessage{
		Sentence:  text,
		Channel:   p.channel,
		Timestamp: p.now().UTC(),
	})
	if err != nil {
		log.Errorf("[mqtt] Could not marshal sentence: %v", err)
		return
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			log.Errorf("[mqtt] Publish to %s failed: %v", p.topic, token.Error())
		}
	}()
}

func (p *MQTT) Close() {
	p.client.Disconnect(250)
}
