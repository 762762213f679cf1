package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptCompletedKey returns the key for the per-student completion marker.
// Its presence means the quiz has been attempted on this deployment.
func (r *CacheKeyStruct) AttemptCompletedKey(quizID string, studentID int) string {
	return fmt.Sprintf("student:%d:quiz:%s:attempted", studentID, quizID)
}

// AttemptAnswersKey returns the key for a student's working answer set hash.
func (r *CacheKeyStruct) AttemptAnswersKey(quizID string, studentID int) string {
	return fmt.Sprintf("student:%d:quiz:%s:answers", studentID, quizID)
}

// QuizGradedKey returns the key for the authoritative graded marker set the
// instant a submission is accepted for grading.
func (r *CacheKeyStruct) QuizGradedKey(quizID string, studentID int) string {
	return fmt.Sprintf("student:%d:quiz:%s:graded", studentID, quizID)
}

var CacheKey = NewCacheKeyStruct()
