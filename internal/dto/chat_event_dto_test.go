package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundEnvelopeValidation(t *testing.T) {
	validate := validator.New()

	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"message event", `{"event":"message","data":{"content":"hi"}}`, true},
		{"feedback event", `{"event":"feedback","data":{"turnId":"t1","verdict":"bad"}}`, true},
		{"unknown event", `{"event":"subscribe","data":{}}`, false},
		{"missing event", `{"data":{}}`, false},
		{"missing data", `{"event":"message"}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var env InboundEvent
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &env))
			err := validate.Struct(env)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFeedbackPayloadVerdictWhitelist(t *testing.T) {
	validate := validator.New()

	assert.NoError(t, validate.Struct(FeedbackPayload{TurnId: "t1", Verdict: "good"}))
	assert.NoError(t, validate.Struct(FeedbackPayload{TurnId: "t1", Verdict: "neutral"}))
	assert.NoError(t, validate.Struct(FeedbackPayload{TurnId: "t1", Verdict: "bad"}))
	assert.Error(t, validate.Struct(FeedbackPayload{TurnId: "t1", Verdict: "terrible"}))
	assert.Error(t, validate.Struct(FeedbackPayload{Verdict: "good"}))
}

func TestMessagePayloadRequiresContent(t *testing.T) {
	validate := validator.New()

	assert.Error(t, validate.Struct(MessagePayload{}))
	assert.NoError(t, validate.Struct(MessagePayload{Content: "hello"}))
}
