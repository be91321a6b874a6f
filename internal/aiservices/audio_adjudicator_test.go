package aiservices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AudioAdjudicator_Adjudicate(t *testing.T) {
	adjudicator := NewAudioAdjudicator()

	t.Run("identical transcripts approve", func(t *testing.T) {
		result := adjudicator.Adjudicate("COMPLETED", "el perro corre por el parque", "El perro corre por el parque.")
		assert.Equal(t, OutcomeApprove, result.Outcome)
		assert.GreaterOrEqual(t, result.Confidence, 0.85)
	})

	t.Run("close transcripts approve", func(t *testing.T) {
		result := adjudicator.Adjudicate("COMPLETED", "el perro corre por el parque", "el perro corre por el parques")
		assert.Equal(t, OutcomeApprove, result.Outcome)
	})

	t.Run("unrelated transcripts reject", func(t *testing.T) {
		result := adjudicator.Adjudicate("COMPLETED", "el perro corre por el parque", "zzz qqq xxx")
		assert.Equal(t, OutcomeReject, result.Outcome)
		assert.Less(t, result.Confidence, 0.6)
	})

	t.Run("missing reference transcript is inconclusive", func(t *testing.T) {
		result := adjudicator.Adjudicate("IN_PROGRESS", "", "el perro corre")
		assert.Equal(t, OutcomeInconclusive, result.Outcome)
	})

	t.Run("failed transcription is inconclusive", func(t *testing.T) {
		result := adjudicator.Adjudicate("FAILED", "", "el perro corre")
		assert.Equal(t, OutcomeInconclusive, result.Outcome)
	})
}
