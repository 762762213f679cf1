package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gradebox/quizdesk-backend/internal/middleware"
	"github.com/gradebox/quizdesk-backend/internal/model"
	"github.com/gradebox/quizdesk-backend/internal/response"
	"github.com/gradebox/quizdesk-backend/internal/service"
	"github.com/gradebox/quizdesk-backend/internal/validator"
)

// maxTextFileBytes bounds uploaded answer/paper text files. Encoded payloads
// are small; anything past this is not a legitimate export.
const maxTextFileBytes = 1 << 20

// QuizHandler handles quiz retrieval and the offline paper/submission flows.
type QuizHandler struct {
	quizService    *service.QuizService
	uploadService  *service.UploadService
	studentService *service.StudentService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	quizService *service.QuizService,
	uploadService *service.UploadService,
	studentService *service.StudentService,
) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		uploadService:  uploadService,
		studentService: studentService,
	}
}

// GetQuizStatus godoc
// GET /api/v1/student/quizzes/:quiz_id
// Returns the quiz descriptor plus the student's submission status and,
// when one exists, the recorded grade.
func (h *QuizHandler) GetQuizStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	status, err := h.quizService.GetStatus(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// ExportPaper godoc
// POST /api/v1/student/quizzes/:quiz_id/paper/export
// Returns the quiz body as an encoded plain-text attachment. Every request
// field is required; a missing one is a structured client error rather
// than a silent fallback.
func (h *QuizHandler) ExportPaper(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ExportPaperRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrMissingField, fields)
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	fileName, encoded, err := h.quizService.ExportPaper(quiz)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrWrongQuizMode)
		return
	}

	serveAttachment(c, fileName, encoded)
}

// OpenPaper godoc
// POST /api/v1/student/papers/open
// Decodes an uploaded encoded paper file and returns the plain question
// text. An answers export uploaded here by mistake is refused.
func (h *QuizHandler) OpenPaper(c *gin.Context) {
	encoded, ok := readTextUpload(c)
	if !ok {
		return
	}

	body, err := h.quizService.OpenPaper(encoded)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"body": body})
}

// SubmitOffline godoc
// POST /api/v1/student/quizzes/:quiz_id/submit-offline
// Records a free-text and/or file submission for an offline-mode quiz.
func (h *QuizHandler) SubmitOffline(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	text := c.PostForm("text")

	fileURL := ""
	if file, header, ferr := c.Request.FormFile("file"); ferr == nil {
		defer file.Close()
		fileURL, err = h.uploadService.SaveSubmissionFile(file, header)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUnsupportedFileType):
				response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
			case errors.Is(err, service.ErrFileTooLarge):
				response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			default:
				response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			}
			return
		}
	}

	if text == "" && fileURL == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrMissingField)
		return
	}

	sub, err := h.quizService.SubmitOffline(c.Request.Context(), quiz, claims.UserID, text, fileURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongQuizMode):
			response.Fail(c, http.StatusBadRequest, response.ErrWrongQuizMode)
		case errors.Is(err, service.ErrDeadlinePassed):
			response.Fail(c, http.StatusForbidden, response.ErrDeadlinePassed)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"submission": sub})
}

// serveAttachment writes a plain-text download with a Content-Disposition
// header carrying the derived file name.
func serveAttachment(c *gin.Context, fileName string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

// readTextUpload extracts the text content of a small uploaded file from
// the "file" multipart field. On failure a response is already written.
func readTextUpload(c *gin.Context) (string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return "", false
	}
	defer file.Close()

	if header.Size > maxTextFileBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(file, maxTextFileBytes+1))
	if err != nil || len(data) > maxTextFileBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		return "", false
	}
	return string(data), true
}
