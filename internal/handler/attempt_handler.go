package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gradebox/quizdesk-backend/internal/attempt"
	"github.com/gradebox/quizdesk-backend/internal/grading"
	"github.com/gradebox/quizdesk-backend/internal/middleware"
	"github.com/gradebox/quizdesk-backend/internal/model"
	"github.com/gradebox/quizdesk-backend/internal/response"
	"github.com/gradebox/quizdesk-backend/internal/service"
	"github.com/gradebox/quizdesk-backend/internal/validator"
)

// AttemptHandler drives the online attempt lifecycle over HTTP.
type AttemptHandler struct {
	manager        *attempt.Manager
	quizService    *service.QuizService
	studentService *service.StudentService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	manager *attempt.Manager,
	quizService *service.QuizService,
	studentService *service.StudentService,
) *AttemptHandler {
	return &AttemptHandler{
		manager:        manager,
		quizService:    quizService,
		studentService: studentService,
	}
}

// BeginAttempt godoc
// POST /api/v1/student/quizzes/:quiz_id/attempt
// Starts (or resumes) the attempt and issues the key challenge.
func (h *AttemptHandler) BeginAttempt(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	a, err := h.manager.Begin(c.Request.Context(), quiz, student)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, a.Snapshot())
}

// VerifyKey godoc
// POST /api/v1/student/quizzes/:quiz_id/attempt/verify-key
// Runs the access-key challenge. On success the attempt activates and the
// countdown starts for timed quizzes.
func (h *AttemptHandler) VerifyKey(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	var req model.VerifyKeyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.manager.VerifyKey(quiz.ID.String(), student.ID, req.Key); err != nil {
		failAttemptError(c, err)
		return
	}

	a, _ := h.manager.Get(quiz.ID.String(), student.ID)
	response.Success(c, http.StatusOK, a.Snapshot())
}

// GetAttempt godoc
// GET /api/v1/student/quizzes/:quiz_id/attempt
// Returns the current attempt snapshot.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	a, found := h.manager.Get(quiz.ID.String(), student.ID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, a.Snapshot())
}

// SetAnswer godoc
// PUT /api/v1/student/quizzes/:quiz_id/attempt/answers/:index
// Records the selected option for one answer slot. Index is 1-based.
func (h *AttemptHandler) SetAnswer(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, found := h.manager.Get(quiz.ID.String(), student.ID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	if err := a.SetAnswer(c.Request.Context(), index-1, req.Option); err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, a.Snapshot())
}

// LockAnswer godoc
// POST /api/v1/student/quizzes/:quiz_id/attempt/answers/:index/lock
// Irreversibly locks one answered slot.
func (h *AttemptHandler) LockAnswer(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	a, found := h.manager.Get(quiz.ID.String(), student.ID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	if err := a.LockAnswer(index - 1); err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, a.Snapshot())
}

// Submit godoc
// POST /api/v1/student/quizzes/:quiz_id/attempt/submit
// Finalizes the attempt and grades it. On a transport failure the attempt
// survives and the request may be repeated.
func (h *AttemptHandler) Submit(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	a, found := h.manager.Get(quiz.ID.String(), student.ID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	result, err := a.Submit(c.Request.Context())
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// SaveOffline godoc
// POST /api/v1/student/quizzes/:quiz_id/attempt/save-offline
// Locks the answered slots and streams the encoded answer set as an
// attachment. The attempt stays active and the export can be repeated.
func (h *AttemptHandler) SaveOffline(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	a, found := h.manager.Get(quiz.ID.String(), student.ID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	fileName, encoded, err := a.SaveOffline()
	if err != nil {
		failAttemptError(c, err)
		return
	}

	serveAttachment(c, fileName, encoded)
}

// CancelAttempt godoc
// POST /api/v1/student/quizzes/:quiz_id/attempt/cancel
// Exports the partial answer set as an attachment and finalizes the
// attempt. The quiz counts as attempted afterwards.
func (h *AttemptHandler) CancelAttempt(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	a, found := h.manager.Get(quiz.ID.String(), student.ID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	fileName, encoded, err := a.Cancel(c.Request.Context())
	if err != nil {
		failAttemptError(c, err)
		return
	}

	serveAttachment(c, fileName, encoded)
}

// ImportAnswers godoc
// POST /api/v1/student/quizzes/:quiz_id/import
// Grades a previously exported answers file. The upload must decode into a
// structurally valid answer set belonging to this quiz and student.
func (h *AttemptHandler) ImportAnswers(c *gin.Context) {
	quiz, student, ok := h.loadContext(c)
	if !ok {
		return
	}

	encoded, readOK := readTextUpload(c)
	if !readOK {
		return
	}

	result, err := h.manager.ImportAnswers(c.Request.Context(), quiz, student, encoded)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// loadContext resolves the authenticated student and the quiz named in the
// route. On failure a response is already written.
func (h *AttemptHandler) loadContext(c *gin.Context) (*model.Quiz, model.StudentIdentity, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, model.StudentIdentity{}, false
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, model.StudentIdentity{}, false
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, model.StudentIdentity{}, false
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return nil, model.StudentIdentity{}, false
	}

	return quiz, h.studentService.Identity(student), true
}

// failAttemptError maps lifecycle and grading errors onto the error
// taxonomy. Guard violations are client errors that changed nothing.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attempt.ErrAlreadyAttempted), errors.Is(err, grading.ErrAlreadyGraded):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, attempt.ErrKeyMismatch):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidQuizKey)
	case errors.Is(err, attempt.ErrNoAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
	case errors.Is(err, attempt.ErrSlotLocked):
		response.Fail(c, http.StatusConflict, response.ErrAnswerLocked)
	case errors.Is(err, attempt.ErrEmptyLock):
		response.Fail(c, http.StatusBadRequest, response.ErrEmptyAnswerLock)
	case errors.Is(err, attempt.ErrAttemptFinalized):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinalized)
	case errors.Is(err, attempt.ErrSlotOutOfRange), errors.Is(err, attempt.ErrInvalidOption):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, attempt.ErrWrongMode):
		response.Fail(c, http.StatusBadRequest, response.ErrWrongQuizMode)
	case errors.Is(err, attempt.ErrMalformedImport):
		response.Fail(c, http.StatusBadRequest, response.ErrMalformedImport)
	case errors.Is(err, grading.ErrDeadlinePassed):
		response.Fail(c, http.StatusForbidden, response.ErrDeadlinePassed)
	case errors.Is(err, attempt.ErrGuardViolation):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinalized)
	case errors.Is(err, attempt.ErrGradeRejected):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyGraded)
	default:
		// Transport failures land here: the attempt stays retryable.
		response.Fail(c, http.StatusServiceUnavailable, response.ErrGradingUnavailable)
	}
}
