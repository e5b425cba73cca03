package customer

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-booking/logger"
	customerModel "clinic-booking/models/customer"
	"clinic-booking/types"
	"clinic-booking/utils"
)

// CustomerController handles customer-related HTTP requests
type CustomerController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

// NewCustomerController creates a new customer controller
func NewCustomerController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *CustomerController {
	return &CustomerController{
		DB:     db,
		Logger: asyncLogger,
	}
}

type createRequest struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email,omitempty"`
	Note  string  `json:"note,omitempty"`
}

// Store creates a new customer.
func (cc *CustomerController) Store(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "name is required",
			Data:    nil,
		})
	}
	if !utils.ValidatePhoneNumber(req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid phone number",
			Data:    nil,
		})
	}

	actor, err := utils.ActorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: err.Error(),
			Data:    nil,
		})
	}

	cust := customerModel.Customer{
		Uuid:      uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Note:      req.Note,
		CreatedBy: actor.Name,
	}
	if cust.CreatedBy == "" {
		cust.CreatedBy = actor.ID
	}

	if err := cc.DB.Create(&cust).Error; err != nil {
		logger.Error("Failed to create customer", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to save customer",
			Data:    nil,
		})
	}

	cc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	logger.Success(fmt.Sprintf("Customer created successfully with ID: %d", cust.ID))
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Customer created successfully",
		Data:    cust,
	})
}

// Show returns one customer.
func (cc *CustomerController) Show(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid customer id",
			Data:    nil,
		})
	}

	var cust customerModel.Customer
	if err := cc.DB.First(&cust, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Customer not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to find customer", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Customer retrieved successfully",
		Data:    cust,
	})
}
