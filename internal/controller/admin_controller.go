// FILE: internal/controller/admin_controller.go
package controller

import (
	"crypto/subtle"
	"time"

	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/pkg/serverutils"
	"ai-talkcoach-be/internal/service"
	"ai-talkcoach-be/internal/version"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error

	GetFeedbackSummary(ctx *fiber.Ctx) error
	GetFeedbackSessions(ctx *fiber.Ctx) error
	GetSessionFeedback(ctx *fiber.Ctx) error

	GetConversations(ctx *fiber.Ctx) error
	GetConversation(ctx *fiber.Ctx) error

	GetKnowledgeStats(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
	Broadcast(ctx *fiber.Ctx) error
	IngestDocument(ctx *fiber.Ctx) error

	GetVersion(ctx *fiber.Ctx) error
	UpdateVersion(ctx *fiber.Ctx) error
}

type adminController struct {
	service       service.IAdminService
	ingest        service.IIngestService
	versions      *version.Store
	validate      *validator.Validate
	jwtSecret     string
	adminPassword string
}

func NewAdminController(
	svc service.IAdminService,
	ingest service.IIngestService,
	versions *version.Store,
	validate *validator.Validate,
	jwtSecret string,
	adminPassword string,
) IAdminController {
	return &adminController{
		service:       svc,
		ingest:        ingest,
		versions:      versions,
		validate:      validate,
		jwtSecret:     jwtSecret,
		adminPassword: adminPassword,
	}
}

// Login trades the operator password for a short-lived admin token.
func (c *adminController) Login(ctx *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := c.validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if c.adminPassword == "" {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, "Admin access is not configured"))
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(c.adminPassword)) != 1 {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid credentials"))
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(c.jwtSecret))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Failed to sign token"))
	}

	return ctx.JSON(serverutils.SuccessResponse(dto.AdminLoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
	}))
}

func (c *adminController) GetFeedbackSummary(ctx *fiber.Ctx) error {
	summary, err := c.service.GetFeedbackSummary(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(summary))
}

func (c *adminController) GetFeedbackSessions(ctx *fiber.Ctx) error {
	sessions, err := c.service.GetFeedbackSessions(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(sessions))
}

func (c *adminController) GetSessionFeedback(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")
	if sessionId == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing session id"))
	}

	feedback, err := c.service.GetSessionFeedback(ctx.UserContext(), sessionId)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(feedback))
}

func (c *adminController) GetConversations(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)

	items, total, err := c.service.GetConversations(ctx.UserContext(), page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (c *adminController) GetConversation(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")

	conversation, err := c.service.GetConversation(ctx.UserContext(), sessionId)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	if conversation == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Conversation not found"))
	}
	return ctx.JSON(serverutils.SuccessResponse(conversation))
}

func (c *adminController) GetKnowledgeStats(ctx *fiber.Ctx) error {
	stats, err := c.service.GetKnowledgeStats(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(stats))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	level := ctx.Query("level", "")
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 50)

	logs, err := c.service.GetSystemLogs(level, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(logs))
}

func (c *adminController) Broadcast(ctx *fiber.Ctx) error {
	var req dto.BroadcastRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := c.validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	c.service.Broadcast(req.Message)
	return ctx.JSON(fiber.Map{"success": true, "status": "Broadcast sent"})
}

func (c *adminController) IngestDocument(ctx *fiber.Ctx) error {
	var req dto.IngestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := c.validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.ingest.Publish(ctx.UserContext(), req.Source, req.Content); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "status": "Ingest queued"})
}

func (c *adminController) GetVersion(ctx *fiber.Ctx) error {
	v, err := c.versions.Current()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(dto.VersionResponse{Version: v})
}

func (c *adminController) UpdateVersion(ctx *fiber.Ctx) error {
	var req dto.BumpVersionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := c.validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	v, err := c.versions.Update(req.Type)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	return ctx.JSON(dto.VersionResponse{Version: v})
}

// RegisterRoutes registers the admin and version routes.
func (c *adminController) RegisterRoutes(r fiber.Router) {
	// Version read stays public, matching the chat frontend's needs.
	r.Get("/version", c.GetVersion)

	admin := r.Group("/admin")
	admin.Post("/login", c.Login)

	guarded := admin.Use(serverutils.NewJwtMiddleware(c.jwtSecret))
	guarded.Get("/feedback-summary", c.GetFeedbackSummary)
	guarded.Get("/feedback-sessions", c.GetFeedbackSessions)
	guarded.Get("/feedback/:sessionId", c.GetSessionFeedback)
	guarded.Get("/conversations", c.GetConversations)
	guarded.Get("/conversations/:sessionId", c.GetConversation)
	guarded.Get("/knowledge-stats", c.GetKnowledgeStats)
	guarded.Get("/logs", c.GetLogs)
	guarded.Post("/broadcast", c.Broadcast)
	guarded.Post("/ingest", c.IngestDocument)
	guarded.Post("/version/update", c.UpdateVersion)
}
