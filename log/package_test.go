package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopics(t *testing.T) {
	assert := assert.New(t)

	topics, err := ParseTopics("call,verdict")
	assert.NoError(err)
	assert.Equal(TopicCall|TopicVerdict, topics)
	assert.Equal("call,verdict", topics.String())

	topics, err = ParseTopics(" Trace , error ")
	assert.NoError(err)
	assert.Equal(TopicTrace|TopicError, topics)

	topics, err = ParseTopics("all")
	assert.NoError(err)
	assert.Equal(AllTopics, topics)
	assert.Equal("call,verdict,trace,error", topics.String())

	topics, err = ParseTopics("")
	assert.NoError(err)
	assert.Equal(Topics(0), topics)

	topics, err = ParseTopics("none")
	assert.NoError(err)
	assert.Equal(Topics(0), topics)

	_, err = ParseTopics("call,bogus")
	assert.Error(err)
	assert.Contains(err.Error(), `"bogus"`)
}

func TestNoLog(t *testing.T) {
	assert := assert.New(t)
	var l Log = NoLog{}
	assert.False(l.Enabled(AllTopics))
	assert.Equal("", l.Call("lock", M{"node": "a"}))
}
