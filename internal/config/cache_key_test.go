package config

import "testing"

func TestCacheKeyConstruction(t *testing.T) {
	quizID := "b3c1a6de-9f7e-4c07-8a53-1f2d3e4a5b6c"

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"session", CacheKey.StudentSessionKey(7), "login:7"},
		{"completed", CacheKey.AttemptCompletedKey(quizID, 7), "student:7:quiz:" + quizID + ":attempted"},
		{"answers", CacheKey.AttemptAnswersKey(quizID, 7), "student:7:quiz:" + quizID + ":answers"},
		{"graded", CacheKey.QuizGradedKey(quizID, 7), "student:7:quiz:" + quizID + ":graded"},
	}

	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s key = %q, want %q", tc.name, tc.got, tc.want)
		}
	}
}
