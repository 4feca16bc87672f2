package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nyukimin/hybridbot/internal/domain/reply"
)

func TestOutcome_Reply(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"success", Outcome{Text: "¡Claro!"}, "¡Claro!"},
		{"success without text", Outcome{}, reply.EmptyGeneration},
		{"connection", Outcome{Failure: FailureConnection}, reply.ConnectionFailure},
		{"request", Outcome{Failure: FailureRequest}, reply.RequestFailure},
		{"empty response", Outcome{Failure: FailureEmptyResponse}, reply.EmptyGeneration},
		{"unknown kind", Outcome{Failure: FailureKind(42)}, reply.RequestFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Reply())
		})
	}
}

func TestOutcome_Succeeded(t *testing.T) {
	assert.True(t, Outcome{Text: "ok"}.Succeeded())
	assert.False(t, Outcome{Failure: FailureRequest}.Succeeded())
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "connection", FailureConnection.String())
	assert.Equal(t, "request", FailureRequest.String())
	assert.Equal(t, "empty_response", FailureEmptyResponse.String())
	assert.Equal(t, "unknown", FailureKind(9).String())
}
