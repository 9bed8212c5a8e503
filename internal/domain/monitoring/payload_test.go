package monitoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/domain/scoring"
)

func TestNumber_Lenient(t *testing.T) {
	tests := []struct {
		raw  string
		want Number
	}{
		{`7.5`, 7.5},
		{`"7.5"`, 7.5},
		{`" 45 "`, 45},
		{`"55%"`, 55},
		{`"7 jam"`, 7},
		{`"about 7"`, 0},
		{`null`, 0},
		{`"seven"`, 0},
		{`true`, 0},
		{`{"value": 3}`, 0},
		{`[1]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestDecodePayload_Types(t *testing.T) {
	p, err := DecodePayload(DomainSleep, json.RawMessage(`{"sleep_hours":"6"}`))
	require.NoError(t, err)
	assert.Equal(t, SleepPayload{SleepHours: 6}, p)

	p, err = DecodePayload(DomainPhysicalActivity, json.RawMessage(`{"minutes_per_week":120,"intensity":"vigorous"}`))
	require.NoError(t, err)
	assert.Equal(t, ActivityPayload{MinutesPerWeek: 120, Intensity: scoring.Vigorous}, p)

	p, err = DecodePayload(DomainDiet, json.RawMessage(`{"protein_gram":"oops","foods":[{"kind":"tempe","cooking_method":"goreng"}]}`))
	require.NoError(t, err)
	diet := p.(DietPayload)
	assert.Equal(t, Number(0), diet.ProteinGram)
	assert.True(t, diet.HasItems())
}

func TestDecodePayload_LenientIntensity(t *testing.T) {
	tests := []struct {
		data string
		want scoring.Intensity
	}{
		{`{"minutes_per_week":200,"intensity":2}`, scoring.Moderate},
		{`{"minutes_per_week":200,"intensity":null}`, scoring.Moderate},
		{`{"minutes_per_week":200,"intensity":{"level":"high"}}`, scoring.Moderate},
		{`{"minutes_per_week":200,"intensity":"sedang"}`, scoring.Moderate},
		{`{"minutes_per_week":200,"intensity":" Vigorous "}`, scoring.Vigorous},
		{`{"minutes_per_week":200,"intensity":"berat"}`, scoring.Vigorous},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			p, err := DecodePayload(DomainPhysicalActivity, json.RawMessage(tt.data))
			require.NoError(t, err)
			assert.Equal(t, ActivityPayload{MinutesPerWeek: 200, Intensity: tt.want}, p)
		})
	}
}

func TestDecodePayload_UnknownDomain(t *testing.T) {
	_, err := DecodePayload(Domain("stress"), json.RawMessage(`{}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"domain"}, verr.Fields)
}

func TestDietPayload_WithEstimateBuildsNewValue(t *testing.T) {
	orig := DietPayload{
		CarbohydratePercent: 10,
		ProteinGram:         20,
		FatPercent:          5,
		Foods:               []nutrition.FoodItem{{Kind: "ikan"}},
	}

	merged := orig.WithEstimate(nutrition.Estimate{CarbohydratePercent: 55, ProteinGram: 40, FatPercent: 25})

	assert.Equal(t, Number(55), merged.CarbohydratePercent)
	assert.Equal(t, Number(40), merged.ProteinGram)
	assert.Equal(t, Number(25), merged.FatPercent)
	assert.Equal(t, Number(10), orig.CarbohydratePercent)

	merged.Foods[0].Kind = "ayam"
	assert.Equal(t, "ikan", orig.Foods[0].Kind)
}

func TestScore_Dispatch(t *testing.T) {
	pc := PatientContext{WeightKg: 60, Age: 70}
	assert.InDelta(t, 100, Score(DietPayload{CarbohydratePercent: 60, ProteinGram: 48, FatPercent: 30}, pc), 0.001)
	assert.InDelta(t, 85, Score(SleepPayload{SleepHours: 9}, pc), 0.001)
	assert.InDelta(t, 70, Score(ActivityPayload{MinutesPerWeek: 1000, Intensity: scoring.Vigorous}, pc), 0.001)
	assert.InDelta(t, 60, Score(MedicationPayload{AdherenceRating: 3}, pc), 0.001)
}

func TestScore_RoundsToStoredPrecision(t *testing.T) {
	pc := PatientContext{WeightKg: 60, Age: 40}
	assert.Equal(t, 70.0, Score(SleepPayload{SleepHours: 4.89972}, pc))
	assert.Equal(t, 71.43, Score(SleepPayload{SleepHours: 5}, pc))
}

func TestEntry_MarshalJSON(t *testing.T) {
	e := Entry{
		ID:        3,
		PatientID: 7,
		Date:      time.Date(2026, time.October, 2, 0, 0, 0, 0, time.UTC),
		Domain:    DomainSleep,
		Payload:   json.RawMessage(`{"sleep_hours":7}`),
		Score:     100,
		Category:  scoring.Adequate,
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "2026-10-02", out["date"])
	assert.Equal(t, "sleep", out["domain"])
	assert.Equal(t, map[string]interface{}{"sleep_hours": 7.0}, out["data"])
}
