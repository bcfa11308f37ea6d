package session

// Broker topics for the tank device. The table is a fixed wire contract,
// not runtime configuration: one topic per channel, one for the level
// reading, one for the control mode.
const (
	TopicLevel  = "/level"
	TopicPower1 = "/power1"
	TopicPower2 = "/power2"
	TopicPower3 = "/power3"
	TopicPump   = "/pump"
	TopicMode   = "/mode"
)

// channelTopics maps each channel to its topic.
var channelTopics = map[Channel]string{
	ChannelPower1: TopicPower1,
	ChannelPower2: TopicPower2,
	ChannelPower3: TopicPower3,
	ChannelPump:   TopicPump,
}

// topicChannels is the reverse mapping, topic to channel.
var topicChannels = map[string]Channel{
	TopicPower1: ChannelPower1,
	TopicPower2: ChannelPower2,
	TopicPower3: ChannelPower3,
	TopicPump:   ChannelPump,
}

// TopicForChannel returns the broker topic for a channel.
//
// Returns:
//   - string: The topic
//   - bool: false if the channel is not in the closed set
func TopicForChannel(ch Channel) (string, bool) {
	topic, ok := channelTopics[ch]
	return topic, ok
}

// ChannelForTopic returns the channel a topic reports on.
//
// Returns:
//   - Channel: The matching channel
//   - bool: false if the topic is not a channel topic
func ChannelForTopic(topic string) (Channel, bool) {
	ch, ok := topicChannels[topic]
	return ch, ok
}

// SubscribedTopics returns every topic the session listens on, in a stable
// order: the level topic, each channel topic, then the mode topic.
func SubscribedTopics() []string {
	topics := make([]string, 0, len(channelTopics)+2)
	topics = append(topics, TopicLevel)
	for _, ch := range Channels() {
		topics = append(topics, channelTopics[ch])
	}
	topics = append(topics, TopicMode)
	return topics
}
