package session

import "testing"

func TestTopicTableIsBidirectional(t *testing.T) {
	for _, ch := range Channels() {
		topic, ok := TopicForChannel(ch)
		if !ok {
			t.Fatalf("TopicForChannel(%q) missing", ch)
		}
		back, ok := ChannelForTopic(topic)
		if !ok || back != ch {
			t.Errorf("ChannelForTopic(%q) = (%q, %v), want (%q, true)", topic, back, ok, ch)
		}
	}
}

func TestTopicForUnknownChannel(t *testing.T) {
	if _, ok := TopicForChannel(Channel("valve")); ok {
		t.Error("TopicForChannel(valve) = ok, want miss")
	}
}

func TestChannelForNonChannelTopics(t *testing.T) {
	for _, topic := range []string{TopicLevel, TopicMode, "/nope"} {
		if _, ok := ChannelForTopic(topic); ok {
			t.Errorf("ChannelForTopic(%q) = ok, want miss", topic)
		}
	}
}

func TestSubscribedTopicsCoverContract(t *testing.T) {
	topics := SubscribedTopics()

	want := map[string]bool{
		TopicLevel:  true,
		TopicPower1: true,
		TopicPower2: true,
		TopicPower3: true,
		TopicPump:   true,
		TopicMode:   true,
	}
	if len(topics) != len(want) {
		t.Fatalf("SubscribedTopics() len = %d, want %d", len(topics), len(want))
	}
	for _, topic := range topics {
		if !want[topic] {
			t.Errorf("unexpected subscribed topic %q", topic)
		}
		delete(want, topic)
	}
	for topic := range want {
		t.Errorf("missing subscribed topic %q", topic)
	}
}

func TestParseChannel(t *testing.T) {
	for _, ch := range Channels() {
		got, ok := ParseChannel(string(ch))
		if !ok || got != ch {
			t.Errorf("ParseChannel(%q) = (%q, %v), want (%q, true)", ch, got, ok, ch)
		}
	}
	if _, ok := ParseChannel("power4"); ok {
		t.Error("ParseChannel(power4) = ok, want miss")
	}
}
