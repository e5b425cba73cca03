package packages

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"clinic-booking/logger"
	customerModel "clinic-booking/models/customer"
	packagesModel "clinic-booking/models/packages"
	"clinic-booking/services/continuity"
	"clinic-booking/services/provision"
	"clinic-booking/types"
	pkgTypes "clinic-booking/types/packages"
	"clinic-booking/utils"
)

// PackagesController handles catalog package and customer package requests
type PackagesController struct {
	DB        *gorm.DB
	Logger    *logger.AsyncLogger
	Provision *provision.Service
}

// NewPackagesController creates a new packages controller
func NewPackagesController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *PackagesController {
	return &PackagesController{
		DB:        db,
		Logger:    asyncLogger,
		Provision: provision.New(db),
	}
}

// Catalog lists the packages currently on sale.
func (p *PackagesController) Catalog(c *fiber.Ctx) error {
	var catalog []packagesModel.Package
	if err := p.DB.Where("active = ?", true).Order("id ASC").Find(&catalog).Error; err != nil {
		logger.Error("Failed to load package catalog", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to load package catalog",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Package catalog retrieved successfully",
		Data:    catalog,
	})
}

// Purchase creates a CustomerPackage from a catalog package.
func (p *PackagesController) Purchase(c *fiber.Ctx) error {
	customerID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid customer id",
			Data:    nil,
		})
	}

	var req pkgTypes.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if req.PackageID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "package_id is required",
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

	var cust customerModel.Customer
	if err := p.DB.First(&cust, customerID).Error; err != nil {
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

	cp, err := p.Provision.Purchase(uint(customerID), req.PackageID, actor)
	if err != nil {
		return types.RespondError(c, err, "Failed to purchase package")
	}

	p.Logger.Log(utils.CreateSanitizedLogEntry(c))
	logger.Success(fmt.Sprintf("Customer %d purchased package %d", customerID, req.PackageID))
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Package purchased successfully",
		Data:    cp,
	})
}

// ListForCustomer returns a customer's packages with their derived remaining
// counts. Counts come from the usage rows, never a stored counter.
func (p *PackagesController) ListForCustomer(c *fiber.Ctx) error {
	customerID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid customer id",
			Data:    nil,
		})
	}

	var cps []packagesModel.CustomerPackage
	if err := p.DB.Preload("Package").
		Where("customer_id = ?", customerID).
		Order("purchased_at DESC").
		Find(&cps).Error; err != nil {
		logger.Error("Failed to load customer packages", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to load customer packages",
			Data:    nil,
		})
	}

	snapshots := make([]pkgTypes.PackageSnapshot, 0, len(cps))
	for _, cp := range cps {
		var total, masks int64
		if err := p.DB.Model(&packagesModel.PackageUsage{}).
			Where("customer_package_id = ?", cp.ID).
			Count(&total).Error; err != nil {
			logger.Error("Failed to count package usage", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to count package usage",
				Data:    nil,
			})
		}
		if err := p.DB.Model(&packagesModel.PackageUsage{}).
			Where("customer_package_id = ? AND used_mask = ?", cp.ID, true).
			Count(&masks).Error; err != nil {
			logger.Error("Failed to count mask usage", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to count mask usage",
				Data:    nil,
			})
		}

		rem := continuity.ComputeRemaining(cp.SessionsTotal, int(total), cp.MaskTotal, int(masks))
		snapshots = append(snapshots, pkgTypes.PackageSnapshot{
			CustomerPackageID: cp.ID,
			Status:            cp.Status.String(),
			SessionsTotal:     rem.SessionsTotal,
			SessionsUsed:      rem.SessionsUsed,
			SessionsRemaining: rem.SessionsRemaining,
			MaskTotal:         rem.MaskTotal,
			MaskUsed:          rem.MaskUsed,
			MaskRemaining:     rem.MaskRemaining,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Customer packages retrieved successfully",
		Data:    snapshots,
	})
}
