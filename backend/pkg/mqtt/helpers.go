package mqtt

import (
	"errors"
	"fmt"
	"strings"

	"robot-bridge/backend/pkg/generate"
)

// validateTopicPattern checks a topic written with {param} placeholders.
// Wildcards are not accepted in patterns; parameters are converted to '+' on registration.
func validateTopicPattern(topic string) error {
	switch {
	case topic == "":
		return errors.New("topic cannot be empty")
	case strings.HasPrefix(topic, "/"):
		return errors.New("leading slash is not allowed")
	case strings.HasSuffix(topic, "/"):
		return errors.New("trailing slash is not allowed")
	}

	for segment := range strings.SplitSeq(topic, "/") {
		if segment == "" {
			return errors.New("empty segments are not allowed")
		}

		if strings.Contains(segment, "#") {
			return errors.New("multi-level wildcard '#' is not supported")
		}

		if strings.Contains(segment, "+") {
			return errors.New("wildcard '+' is not supported, use {param}")
		}

		isParam := strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
		if !isParam {
			if strings.ContainsAny(segment, "{}") {
				return errors.New("invalid parameter syntax, use {paramName}")
			}

			continue
		}

		if name := segment[1 : len(segment)-1]; !generate.IsValidParameterName(name) {
			return fmt.Errorf("invalid parameter name '%s'", name)
		}
	}

	return nil
}

// convertTopicToMQTT turns robots/{robotID}/status into robots/+/status.
func convertTopicToMQTT(topic string) string {
	segments := strings.Split(topic, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			segments[i] = "+"
		}
	}

	return strings.Join(segments, "/")
}

func validateQoS(qos QoS) error {
	if qos > QoSExactlyOnce {
		return errors.New("qos must be 0, 1, or 2")
	}

	return nil
}

// generateParameters requires every placeholder in topic to be documented and vice versa.
func generateParameters(topic string, topicParams []TopicParameter) ([]generate.MQTTTopicParameter, error) {
	inTopic := map[string]struct{}{}

	for section := range strings.SplitSeq(topic, "/") {
		names, err := generate.ExtractParamName(section)
		if err != nil {
			return nil, fmt.Errorf("invalid topic %s: %w", topic, err)
		}

		for _, name := range names {
			inTopic[name] = struct{}{}
		}
	}

	parameters := make([]generate.MQTTTopicParameter, 0, len(topicParams))
	documented := map[string]struct{}{}

	for _, p := range topicParams {
		if p.Name == "" || p.Description == "" || p.Type == nil {
			return nil, fmt.Errorf("parameter %q in topic %s needs a Name, Description and Type", p.Name, topic)
		}

		if _, ok := inTopic[p.Name]; !ok {
			return nil, fmt.Errorf("documented parameter %s not found in topic", p.Name)
		}

		documented[p.Name] = struct{}{}
		parameters = append(parameters, generate.MQTTTopicParameter{
			Name:        p.Name,
			TypeValue:   p.Type,
			Description: p.Description,
		})
	}

	for name := range inTopic {
		if _, ok := documented[name]; !ok {
			return nil, fmt.Errorf("topic parameter %s not documented", name)
		}
	}

	return parameters, nil
}

// validateOperation checks the fields shared by publications and subscriptions.
func validateOperation(operationID, summary, description, group string, messageType any, qos QoS) error {
	switch {
	case operationID == "":
		return errors.New("operationID is required")
	case summary == "":
		return errors.New("summary is required")
	case description == "":
		return errors.New("description is required")
	case group == "":
		return errors.New("group is required")
	case messageType == nil:
		return errors.New("messageType is required")
	}

	return validateQoS(qos)
}

func (mb *MQTTBuilder) validatePublicationSpec(spec PublicationSpec) error {
	return validateOperation(spec.OperationID, spec.Summary, spec.Description, spec.Group, spec.MessageType, spec.QoS)
}

func (mb *MQTTBuilder) validateSubscriptionSpec(spec SubscriptionSpec) error {
	if spec.Handler == nil {
		return errors.New("handler is required")
	}

	return validateOperation(spec.OperationID, spec.Summary, spec.Description, spec.Group, spec.MessageType, spec.QoS)
}
