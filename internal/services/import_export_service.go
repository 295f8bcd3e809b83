package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/n0psw/lms-quiz-engine/internal/gaps"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/repositories"
	"github.com/n0psw/lms-quiz-engine/internal/scoring"
)

// ImportExportService handles spreadsheet import/export for quiz
// content and attempt results.
type ImportExportService interface {
	ImportQuizFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error)
	ImportQuizFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error)

	ExportQuizToExcel(ctx context.Context, stepID string) ([]byte, error)
	ExportAttemptsToExcel(ctx context.Context, stepID string) ([]byte, error)
}

type importExportService struct {
	quizzes  QuizService
	attempts repositories.AttemptRepository
	logger   *slog.Logger
}

func NewImportExportService(quizzes QuizService, attempts repositories.AttemptRepository, logger *slog.Logger) ImportExportService {
	return &importExportService{
		quizzes:  quizzes,
		attempts: attempts,
		logger:   logger,
	}
}

// ===== IMPORT OPERATIONS =====

type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

type ImportResult struct {
	TotalRows    int                     `json:"total_rows"`
	SuccessCount int                     `json:"success_count"`
	ErrorCount   int                     `json:"error_count"`
	Errors       []ImportValidationError `json:"errors"`
	Quiz         *models.Quiz            `json:"quiz,omitempty"`
}

var quizSheetHeaders = []string{
	"question_type", "prompt_text", "content_text",
	"option_a", "option_b", "option_c", "option_d",
	"correct_answer", "points", "separator", "explanation",
}

func (s *importExportService) ImportQuizFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error) {
	s.logger.Info("Starting quiz import", "filename", filename)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".xls":
		return s.ImportQuizFromExcel(ctx, file)
	default:
		return nil, NewValidationError("file", "unsupported file format", ext)
	}
}

func (s *importExportService) ImportQuizFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "Excel must have header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"question_type", "prompt_text"} {
		if _, exists := headerMap[col]; !exists {
			return nil, NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	result := &ImportResult{TotalRows: len(rows) - 1}
	quiz := &models.Quiz{DisplayMode: models.DisplayOneByOne}

	for rowIndex, row := range rows[1:] {
		question, rowErrors := s.parseQuestionRow(row, headerMap, rowIndex+2)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		question.ID = fmt.Sprintf("q%d", len(quiz.Questions)+1)
		question.OrderIndex = len(quiz.Questions)
		quiz.Questions = append(quiz.Questions, *question)
		result.SuccessCount++
	}

	result.Quiz = quiz

	s.logger.Info("Quiz import completed",
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)

	return result, nil
}

func (s *importExportService) parseQuestionRow(record []string, headerMap map[string]int, rowNum int) (*models.Question, []ImportValidationError) {
	var rowErrors []ImportValidationError

	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}

	typeStr := getColumn("question_type")
	if typeStr == "" {
		rowErrors = append(rowErrors, ImportValidationError{
			Row: rowNum, Column: "question_type", Message: "required field",
		})
		return nil, rowErrors
	}

	questionType := models.QuestionType(strings.ToLower(typeStr))
	if !isKnownQuestionType(questionType) {
		rowErrors = append(rowErrors, ImportValidationError{
			Row: rowNum, Column: "question_type", Message: "unsupported question type", Value: typeStr,
		})
		return nil, rowErrors
	}

	question := &models.Question{
		Type:        questionType,
		PromptText:  getColumn("prompt_text"),
		ContentText: getColumn("content_text"),
		Separator:   getColumn("separator"),
		Explanation: getColumn("explanation"),
		Points:      1,
	}
	if pointsStr := getColumn("points"); pointsStr != "" {
		if p, err := strconv.Atoi(pointsStr); err == nil && p > 0 {
			question.Points = p
		}
	}

	switch questionType {
	case models.SingleChoice, models.MultipleChoice, models.MediaQuestion:
		question.Options = readOptionColumns(getColumn)
		if len(question.Options) != models.ChoiceOptionCount {
			rowErrors = append(rowErrors, ImportValidationError{
				Row: rowNum, Column: "options",
				Message: fmt.Sprintf("exactly %d options are required", models.ChoiceOptionCount),
			})
			return nil, rowErrors
		}

		indices, ok := parseCorrectLetters(getColumn("correct_answer"))
		if !ok || len(indices) == 0 {
			rowErrors = append(rowErrors, ImportValidationError{
				Row: rowNum, Column: "correct_answer",
				Message: "must list correct options as letters (A, B, C or D)",
				Value:   getColumn("correct_answer"),
			})
			return nil, rowErrors
		}
		if questionType == models.MultipleChoice {
			question.CorrectIndices = indices
		} else {
			question.CorrectIndex = &indices[0]
		}
		if questionType == models.MediaQuestion {
			question.MediaURL = getColumn("media_url")
			question.MediaType = getColumn("media_type")
		}

	case models.ShortAnswer:
		answer := getColumn("correct_answer")
		if answer == "" {
			rowErrors = append(rowErrors, ImportValidationError{
				Row: rowNum, Column: "correct_answer", Message: "required field",
			})
			return nil, rowErrors
		}
		question.CorrectText = answer

	case models.LongText:
		question.CorrectText = getColumn("correct_answer")

	case models.FillBlank, models.TextCompletion:
		// The passage is authoritative; the correct_answer column is
		// ignored and the cached answers come from the gap grammar.
		if gaps.CountGaps(question.ContentText) == 0 {
			rowErrors = append(rowErrors, ImportValidationError{
				Row: rowNum, Column: "content_text",
				Message: "passage must contain at least one [[...]] gap",
			})
			return nil, rowErrors
		}
		question.GapAnswers = gaps.ExtractAnswers(question.ContentText, question.GapSeparator())
	}

	return question, nil
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportQuizToExcel(ctx context.Context, stepID string) ([]byte, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, stepID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Questions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range quizSheetHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex := range quiz.Questions {
		row := questionToRow(&quiz.Questions[rowIndex])
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *importExportService) ExportAttemptsToExcel(ctx context.Context, stepID string) ([]byte, error) {
	attempts, err := s.attempts.GetByStep(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts for step %s: %w", stepID, err)
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"User ID", "Quiz Title", "Total Questions", "Correct Units",
		"Score (%)", "Result", "Time Spent (minutes)", "Completed At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, attempt := range attempts {
		result := "Fail"
		if attempt.ScorePercentage >= scoring.PassThreshold {
			result = "Pass"
		}
		row := []interface{}{
			attempt.UserID,
			attempt.QuizTitle,
			attempt.TotalQuestions,
			attempt.CorrectAnswers,
			attempt.ScorePercentage,
			result,
			attempt.TimeSpentSeconds / 60,
			attempt.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== HELPER FUNCTIONS =====

func isKnownQuestionType(qt models.QuestionType) bool {
	for _, known := range models.QuestionTypes {
		if qt == known {
			return true
		}
	}
	return false
}

func readOptionColumns(getColumn func(string) string) []models.QuestionOption {
	var options []models.QuestionOption
	for i, colName := range []string{"option_a", "option_b", "option_c", "option_d"} {
		text := getColumn(colName)
		if text == "" {
			continue
		}
		letter := string(rune('A' + i))
		options = append(options, models.QuestionOption{
			ID:     strconv.Itoa(i),
			Text:   text,
			Letter: letter,
		})
	}
	return options
}

func parseCorrectLetters(value string) ([]int, bool) {
	if value == "" {
		return nil, false
	}

	var indices []int
	for _, part := range strings.Split(strings.ToUpper(value), ",") {
		part = strings.TrimSpace(part)
		if len(part) != 1 || part < "A" || part > "D" {
			return nil, false
		}
		indices = append(indices, int(part[0]-'A'))
	}
	return indices, true
}

func questionToRow(q *models.Question) []string {
	row := make([]string, len(quizSheetHeaders))

	row[0] = string(q.Type)
	row[1] = q.PromptText
	row[2] = q.ContentText

	for i, opt := range q.Options {
		if i < models.ChoiceOptionCount {
			row[3+i] = opt.Text
		}
	}

	switch q.Type {
	case models.SingleChoice, models.MediaQuestion:
		if q.CorrectIndex != nil && *q.CorrectIndex < models.ChoiceOptionCount {
			row[7] = string(rune('A' + *q.CorrectIndex))
		}
	case models.MultipleChoice:
		var letters []string
		for _, idx := range q.CorrectIndices {
			if idx < models.ChoiceOptionCount {
				letters = append(letters, string(rune('A'+idx)))
			}
		}
		row[7] = strings.Join(letters, ",")
	case models.ShortAnswer, models.LongText:
		row[7] = q.CorrectText
	case models.FillBlank, models.TextCompletion:
		row[7] = strings.Join(q.GapAnswers, " | ")
	}

	row[8] = strconv.Itoa(q.Points)
	row[9] = q.Separator
	row[10] = q.Explanation

	return row
}
