package domain

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty of a suggested workout.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Workout is a standalone suggestion, matched to users by fitness level only.
type Workout struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Difficulty      Difficulty         `bson:"difficulty" json:"difficulty"`
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"` // >= 1
	// Exercises holds a JSON-encoded list of exercise names.
	Exercises       string       `bson:"exercises" json:"exercises"`
	ForFitnessLevel FitnessLevel `bson:"forFitnessLevel" json:"forFitnessLevel"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseList decodes Exercises. An empty field yields an empty list.
func (w *Workout) ExerciseList() ([]string, error) {
	if w.Exercises == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(w.Exercises), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// SetExercises encodes the ordered exercise list into Exercises.
func (w *Workout) SetExercises(exercises []string) error {
	if exercises == nil {
		exercises = []string{}
	}
	data, err := json.Marshal(exercises)
	if err != nil {
		return err
	}
	w.Exercises = string(data)
	return nil
}
