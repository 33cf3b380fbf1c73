package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidDistance(t *testing.T) {
	for km, want := range map[float64]bool{
		0:          true,
		5:          true,
		12.34:      true,
		0.1:        true,
		999999.99:  true,
		1000000:    false,
		-0.01:      false,
		1.234:      false,
		math.NaN(): false,
	} {
		assert.Equal(t, want, ValidDistance(km), "distance %v", km)
	}
}

func TestActivityTypeValid(t *testing.T) {
	assert.True(t, ActivityRunning.Valid())
	assert.True(t, ActivityOther.Valid())
	assert.False(t, ActivityType("dancing").Valid())
	assert.False(t, ActivityType("").Valid())
}

func TestParseActivityDate(t *testing.T) {
	d, err := ParseActivityDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseActivityDate("2024-13-01")
	assert.Error(t, err)
	_, err = ParseActivityDate("02/03/2024")
	assert.Error(t, err)
}

func TestWorkoutExercises(t *testing.T) {
	var w Workout
	list, err := w.ExerciseList()
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, w.SetExercises([]string{"Sun salutations", "Savasana"}))
	assert.JSONEq(t, `["Sun salutations","Savasana"]`, w.Exercises)
	list, err = w.ExerciseList()
	require.NoError(t, err)
	assert.Equal(t, []string{"Sun salutations", "Savasana"}, list)

	require.NoError(t, w.SetExercises(nil))
	assert.Equal(t, "[]", w.Exercises)

	w.Exercises = "not json"
	_, err = w.ExerciseList()
	assert.Error(t, err)
}
