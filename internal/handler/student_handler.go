package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"results-web/internal/repository"
	"results-web/internal/utils"
)

type StudentHandler struct {
	studentRepo *repository.StudentRepository
	resultRepo  *repository.ResultRepository
}

func NewStudentHandler(studentRepo *repository.StudentRepository, resultRepo *repository.ResultRepository) *StudentHandler {
	return &StudentHandler{studentRepo: studentRepo, resultRepo: resultRepo}
}

func (h *StudentHandler) List(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	students, total, err := h.studentRepo.FindAll(c.Context(), params.Limit, offset, params.Search)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list students", err)
	}

	return utils.SuccessResponse(c, "Students retrieved", fiber.Map{
		"students":   students,
		"pagination": utils.CalculatePagination(params.Page, params.Limit, int64(total)),
	})
}

func (h *StudentHandler) Get(c *fiber.Ctx) error {
	rollNumber := c.Params("roll")

	student, err := h.studentRepo.FindByRollNumber(c.Context(), rollNumber)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load student", err)
	}
	if student == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Student not found", nil)
	}

	return utils.SuccessResponse(c, "Student retrieved", student)
}

// Results returns a student's results by internal id.
func (h *StudentHandler) Results(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid student id", err)
	}

	results, err := h.resultRepo.FindByStudent(c.Context(), id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list results", err)
	}

	return utils.SuccessResponse(c, "Results retrieved", results)
}
