package routes

import (
	"clinic-booking/constants"
	"clinic-booking/controllers/appointment"
	"clinic-booking/controllers/auth"
	"clinic-booking/controllers/customer"
	"clinic-booking/controllers/packages"
	"clinic-booking/logger"
	"clinic-booking/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	asyncLogger := logger.NewAsyncLogger(db)
	authController := auth.NewAuthController(db, asyncLogger)
	appointmentController := appointment.NewAppointmentController(db, asyncLogger)
	customerController := customer.NewCustomerController(db, asyncLogger)
	packagesController := packages.NewPackagesController(db, asyncLogger)

	// Start the async logger processing goroutine
	go asyncLogger.ProcessLog()

	// Index route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "clinic-booking", "status": "ok"})
	})

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Post("/auth/login", authController.Login)

	/*=============================================================================
	| Protected Routes
	===============================================================================*/
	authGroup := api.Group("/auth")
	authGroup.Get("/profile", middleware.RequireAuthentication(), authController.Profile)

	/*=============================================================================
	| Customer Routes
	===============================================================================*/
	customerGroup := api.Group("/customers")

	customerGroup.Post("/", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), customerController.Store)

	customerGroup.Get("/:id", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), customerController.Show)

	customerGroup.Get("/:id/packages", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), packagesController.ListForCustomer)

	customerGroup.Post("/:id/packages", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), packagesController.Purchase)

	/*=============================================================================
	| Package Routes
	===============================================================================*/
	packageGroup := api.Group("/packages")

	packageGroup.Get("/catalog", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), packagesController.Catalog)

	/*=============================================================================
	| Appointment Routes
	===============================================================================*/
	appointmentGroup := api.Group("/appointments")

	appointmentGroup.Post("/", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), appointmentController.Store)

	appointmentGroup.Post("/backdate", middleware.RequirePermissions(
		constants.AdminPermissions...,
	), appointmentController.BackdateStore)

	appointmentGroup.Get("/queue", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), appointmentController.Queue)

	appointmentGroup.Get("/:id", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), appointmentController.Show)

	appointmentGroup.Post("/:id/complete", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), appointmentController.Complete)

	appointmentGroup.Post("/:id/revert", middleware.RequirePermissions(
		constants.FrontDeskPermissions...,
	), appointmentController.Revert)

	appointmentGroup.Patch("/:id", middleware.RequirePermissions(
		constants.AdminPermissions...,
	), appointmentController.AdminUpdate)

	appointmentGroup.Patch("/:id/status", middleware.RequirePermissions(
		constants.AdminPermissions...,
	), appointmentController.StatusPatch)
}
