package server

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"videoSearch/core"
)

// Deps HTTP 层依赖
type Deps struct {
	Searcher Searcher
	Indexer  Indexer // 可为 nil，此时不注册入库接口
	Log      logrus.FieldLogger
	// 单个请求体上限（字节），图像查询需要较大的值
	BodyLimit int
}

// NewApp 创建 fiber 应用并注册路由
func NewApp(deps Deps) *fiber.App {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	bodyLimit := deps.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 16 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "videoSearch",
		BodyLimit:    bodyLimit,
		ReadTimeout:  60 * time.Second,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(RequestLogger(log))

	started := time.Now()
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"uptime_sec": int64(time.Since(started).Seconds()),
		})
	})

	h := &SearchHandlers{searcher: deps.Searcher, validate: validator.New()}
	app.Get("/search", h.SearchGet)
	app.Post("/search", h.SearchPost)

	if deps.Indexer != nil {
		ih := &IndexHandlers{indexer: deps.Indexer, validate: h.validate}
		app.Post("/shots/index", ih.IndexShot)
		app.Post("/transcripts/:jobId/segment", ih.SegmentTranscript)
	}

	return app
}

// errorHandler 统一错误响应 {"status":"error","message":...}
func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithField("uri", c.OriginalURL()).Error("request failed")
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}
}

// StatusFor 错误到HTTP状态码的映射
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, core.ErrInvalidQuery), errors.Is(err, core.ErrInvalidImage):
		return fiber.StatusBadRequest
	case errors.Is(err, core.ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
