package api

import (
	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/auth"
	"github.com/schooltrack/schooltrack/internal/config"
	"github.com/schooltrack/schooltrack/internal/http/api/handlers"
	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/gorm"
)

// RegisterRoutes registers health, auth, and protected resource routes.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, jwtCfg config.JWTConfig, svc *auth.Service) {
	if r == nil || conn == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(conn)
	r.GET("/healthz", healthHandler.Healthz)

	authHandler := handlers.NewAuthHandler(svc)
	authGroup := r.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/verify-otp", authHandler.VerifyOTP)
	authGroup.POST("/request-otp", authHandler.RequestOTP)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.POST("/logout", authHandler.Logout)

	authed := r.Group("/api")
	authed.Use(AuthMiddleware(jwtCfg, svc.Blacklist()))

	profileHandler := handlers.NewProfileHandler(conn)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile", profileHandler.Update)
	authed.PUT("/profile/password", profileHandler.ChangePassword)

	staff := authed.Group("")
	staff.Use(RequireRoles(models.RoleAdmin, models.RoleRTBStaff))

	deviceHandler := handlers.NewDeviceHandler(conn)
	authed.GET("/devices", deviceHandler.List)
	authed.GET("/devices/:id", deviceHandler.Get)
	staff.POST("/devices", deviceHandler.Create)
	staff.PUT("/devices/:id", deviceHandler.Update)
	staff.DELETE("/devices/:id", deviceHandler.Delete)
	staff.POST("/devices/:id/assign", deviceHandler.Assign)

	schoolHandler := handlers.NewSchoolHandler(conn)
	authed.GET("/schools", schoolHandler.List)
	authed.GET("/schools/:id", schoolHandler.Get)
	staff.POST("/schools", schoolHandler.Create)
	staff.PUT("/schools/:id", schoolHandler.Update)
	staff.DELETE("/schools/:id", schoolHandler.Delete)

	schools := authed.Group("")
	schools.Use(RequireRoles(models.RoleSchool, models.RoleAdmin))

	requestHandler := handlers.NewDeviceRequestHandler(conn)
	authed.GET("/requests", requestHandler.List)
	schools.POST("/requests", requestHandler.Create)
	staff.POST("/requests/:id/approve", requestHandler.Approve)
	staff.POST("/requests/:id/reject", requestHandler.Reject)

	technicians := authed.Group("")
	technicians.Use(RequireRoles(models.RoleTechnician, models.RoleAdmin))

	reportHandler := handlers.NewIssueReportHandler(conn)
	authed.GET("/reports", reportHandler.List)
	authed.POST("/reports", reportHandler.Create)
	technicians.POST("/reports/:id/resolve", reportHandler.Resolve)
}
