package mqtt

import (
	"strings"
	"testing"
)

func TestValidateTopicPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		topic    string
		errorMsg string // empty means valid
	}{
		{name: "command topic", topic: "robot/command/set"},
		{name: "parameterised", topic: "robots/{robotID}/telemetry/status"},
		{name: "parameter with digits and underscore", topic: "robots/{robot_1}/mode"},
		{name: "empty", topic: "", errorMsg: "topic cannot be empty"},
		{name: "leading slash", topic: "/robot/command/set", errorMsg: "leading slash"},
		{name: "trailing slash", topic: "robot/command/", errorMsg: "trailing slash"},
		{name: "empty segment", topic: "robot//set", errorMsg: "empty segments"},
		{name: "hash wildcard", topic: "robot/#", errorMsg: "multi-level wildcard"},
		{name: "plus wildcard", topic: "robot/+/status", errorMsg: "wildcard '+'"},
		{name: "param starts with digit", topic: "robots/{1robot}/mode", errorMsg: "invalid parameter name '1robot'"},
		{name: "param with hyphen", topic: "robots/{robot-id}/mode", errorMsg: "invalid parameter name 'robot-id'"},
		{name: "empty param", topic: "robots/{}/mode", errorMsg: "invalid parameter name ''"},
		{name: "unclosed brace", topic: "robots/{robotID/mode", errorMsg: "invalid parameter syntax"},
		{name: "stray closing brace", topic: "robots/robotID}/mode", errorMsg: "invalid parameter syntax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateTopicPattern(tt.topic)
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("validateTopicPattern(%q) unexpected error: %v", tt.topic, err)
				}

				return
			}

			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("validateTopicPattern(%q) error = %v, want it to contain %q", tt.topic, err, tt.errorMsg)
			}
		})
	}
}

func TestConvertTopicToMQTT(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"robot/telemetry/status":          "robot/telemetry/status",
		"robots/{robotID}/command/set":    "robots/+/command/set",
		"{fleet}/robots/{robotID}/status": "+/robots/+/status",
		"robots/{robotID}":                "robots/+",
	}

	for in, want := range tests {
		if got := convertTopicToMQTT(in); got != want {
			t.Errorf("convertTopicToMQTT(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateQoS(t *testing.T) {
	t.Parallel()

	for _, q := range []QoS{QoSAtMostOnce, QoSAtLeastOnce, QoSExactlyOnce} {
		if err := validateQoS(q); err != nil {
			t.Errorf("validateQoS(%d) unexpected error: %v", q, err)
		}
	}

	for _, q := range []QoS{3, 255} {
		if err := validateQoS(q); err == nil {
			t.Errorf("validateQoS(%d) expected error", q)
		}
	}
}

func TestGenerateParameters(t *testing.T) {
	t.Parallel()

	robotID := TopicParameter{Name: "robotID", Description: "robot identifier", Type: new(string)}

	if _, err := generateParameters("robots/{robotID}/status", []TopicParameter{robotID}); err != nil {
		t.Errorf("documented parameter rejected: %v", err)
	}

	if _, err := generateParameters("robots/{robotID}/status", nil); err == nil {
		t.Error("undocumented parameter accepted")
	}

	if _, err := generateParameters("robot/status", []TopicParameter{robotID}); err == nil {
		t.Error("parameter missing from topic accepted")
	}

	if _, err := generateParameters("robots/{robotID}/status", []TopicParameter{{Name: "robotID", Type: new(string)}}); err == nil {
		t.Error("parameter without description accepted")
	}
}

func TestIsTLSBroker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		want    bool
		wantErr bool
	}{
		{url: "tcp://127.0.0.1:1883"},
		{url: "mqtt://broker.local:1883"},
		{url: "ssl://broker.hivemq.cloud:8883", want: true},
		{url: "mqtts://broker.hivemq.cloud:8883", want: true},
		{url: "tls://broker:8883", want: true},
		{url: "http://broker:80", wantErr: true},
	}

	for _, tt := range tests {
		got, err := isTLSBroker(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("isTLSBroker(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)

			continue
		}

		if got != tt.want {
			t.Errorf("isTLSBroker(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
