package grading

import "github.com/gradebox/quizdesk-backend/internal/model"

// Score grades an answer set against the quiz's answer key. Marks are
// split evenly across questions; an unanswered or missing question earns
// nothing but still appears in the details.
func Score(quiz *model.Quiz, answerKey []model.QuizQuestion, set *model.FinalAnswerSet) *model.GradedResult {
	answers := make(map[int]string, len(set.Answers))
	for _, a := range set.Answers {
		answers[a.Question] = a.Answer
	}

	var perQuestion float64
	if len(answerKey) > 0 {
		perQuestion = float64(quiz.TotalMarks) / float64(len(answerKey))
	}

	result := &model.GradedResult{TotalMarks: quiz.TotalMarks}
	for _, qq := range answerKey {
		given := answers[qq.Question]
		correct := given != "" && given == qq.CorrectOption

		result.Details = append(result.Details, model.QuestionResult{
			Question:      qq.Question,
			CorrectAnswer: qq.CorrectOption,
			StudentAnswer: given,
			IsCorrect:     correct,
		})
		if correct {
			result.ObtainedMarks += perQuestion
		}
	}
	return result
}
